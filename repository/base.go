/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/tomoncle/microrm/binder"
	"github.com/tomoncle/microrm/database"
	"github.com/tomoncle/microrm/driver"
	"github.com/tomoncle/microrm/mapper"
	"github.com/tomoncle/microrm/query"
	"github.com/tomoncle/microrm/types"
)

type baseRepositoryImpl[T any] struct {
	mapper *mapper.Mapper[T]
	driver driver.Driver
	binder *binder.Binder
	hooks  Hooks
	logger database.Logger
}

var _ Repository[struct{}] = (*baseRepositoryImpl[struct{}])(nil)

// NewRepository returns a repository for the records described by m,
// executing through drv. opts may be nil.
func NewRepository[T any](drv driver.Driver, m *mapper.Mapper[T], opts *Options) Repository[T] {
	if opts == nil {
		opts = &Options{}
	}
	r := &baseRepositoryImpl[T]{
		mapper: m,
		driver: drv,
		binder: binder.New(drv.Dialect()),
		hooks:  opts.Hooks,
		logger: opts.Logger,
	}
	if r.hooks.BeforeInsert == nil {
		r.hooks.BeforeInsert = identityHook
	}
	if r.hooks.BeforeUpdate == nil {
		r.hooks.BeforeUpdate = identityHook
	}
	if r.logger == nil {
		r.logger = database.GetLogger()
	}
	return r
}

func (r *baseRepositoryImpl[T]) Mapper() *mapper.Mapper[T] { return r.mapper }

func (r *baseRepositoryImpl[T]) Driver() driver.Driver { return r.driver }

func (r *baseRepositoryImpl[T]) SetBeforeInsert(hook Hook) {
	if hook == nil {
		hook = identityHook
	}
	r.hooks.BeforeInsert = hook
}

func (r *baseRepositoryImpl[T]) SetBeforeUpdate(hook Hook) {
	if hook == nil {
		hook = identityHook
	}
	r.hooks.BeforeUpdate = hook
}

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, pk interface{}) (*T, error) {
	filter, err := r.keyFilter(pk, "id")
	if err != nil {
		return nil, err
	}
	rows, err := r.GetByFilter(ctx, filter, false)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 1:
		return rows[0], nil
	case 0:
		return nil, nil
	default:
		r.logger.Warn("primary key matched more than one row",
			"table", r.mapper.Table(), "pk", pk, "rows", len(rows))
		return nil, nil
	}
}

func (r *baseRepositoryImpl[T]) GetByFilter(ctx context.Context, filter *types.Filter, forUpdate bool) ([]*T, error) {
	q := query.NewQuery().Table(r.mapper.Table()).WhereFilter(filter)
	if forUpdate {
		q.ForUpdate()
	}
	return r.GetByQuery(ctx, q)
}

func (r *baseRepositoryImpl[T]) GetByQuery(ctx context.Context, q *query.Query) ([]*T, error) {
	var result []*T
	for row, err := range r.Iterate(ctx, q) {
		if err != nil {
			return nil, err
		}
		result = append(result, row[0].(*T))
	}
	return result, nil
}

func (r *baseRepositoryImpl[T]) GetByQueryMulti(ctx context.Context, q *query.Query, others ...mapper.Hydrator) ([][]interface{}, error) {
	var result [][]interface{}
	for row, err := range r.Iterate(ctx, q, others...) {
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, nil
}

func (r *baseRepositoryImpl[T]) Iterate(ctx context.Context, q *query.Query, others ...mapper.Hydrator) iter.Seq2[[]interface{}, error] {
	return func(yield func([]interface{}, error) bool) {
		stmt, err := q.Build(r.driver.DB())
		if err != nil {
			yield(nil, err)
			return
		}
		r.trace("select", stmt)

		hydrators := make([]mapper.Hydrator, 0, len(others)+1)
		hydrators = append(hydrators, r.mapper)
		hydrators = append(hydrators, others...)

		for row, err := range r.driver.Iterate(ctx, stmt) {
			if err != nil {
				yield(nil, err)
				return
			}
			instances := make([]interface{}, len(hydrators))
			for i, h := range hydrators {
				instance, err := h.Hydrate(r.binder, row)
				if err != nil {
					yield(nil, fmt.Errorf("hydrate %s: %w", h.Table(), err))
					return
				}
				instances[i] = instance
			}
			if !yield(instances, nil) {
				return
			}
		}
	}
}

func (r *baseRepositoryImpl[T]) All(ctx context.Context) ([]*T, error) {
	return r.GetByQuery(ctx, query.NewQuery().Table(r.mapper.Table()))
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, filter *types.Filter) (int, error) {
	stmt, err := query.NewQuery().Table(r.mapper.Table()).WhereFilter(filter).BuildCount(r.driver.DB())
	if err != nil {
		return 0, err
	}
	r.trace("count", stmt)
	for row, err := range r.driver.Iterate(ctx, stmt) {
		if err != nil {
			return 0, err
		}
		return toInt(row["total"])
	}
	return 0, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := r.Count(ctx, pageRequest.GetFilter())
	if err != nil || total == 0 {
		return pagination, err
	}
	q := query.NewQuery().
		Table(r.mapper.Table()).
		WhereFilter(pageRequest.GetFilter()).
		OrderBy(pageRequest.GetOrders()...).
		Limit(pageRequest.GetOffset(), pageRequest.GetPageSize())
	items, err := r.GetByQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = items
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, pk interface{}) (bool, error) {
	filter, err := r.keyFilter(pk, "id")
	if err != nil {
		return false, err
	}
	return r.DeleteByQuery(ctx, query.NewUpdatable(r.mapper.Table()).WhereFilter(filter))
}

func (r *baseRepositoryImpl[T]) DeleteByQuery(ctx context.Context, u *query.Updatable) (bool, error) {
	stmt, err := u.BuildDelete(r.driver.DB())
	if err != nil {
		return false, err
	}
	r.trace("delete", stmt)
	if _, err := r.driver.Execute(ctx, stmt); err != nil {
		r.logWriteError("delete", err)
		return false, err
	}
	return true, nil
}

func (r *baseRepositoryImpl[T]) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, repo Repository[T]) error) error {
	return r.driver.RunInTx(ctx, opts, func(ctx context.Context, tx driver.Driver) error {
		return fn(ctx, r.withDriver(tx))
	})
}

func (r *baseRepositoryImpl[T]) withDriver(drv driver.Driver) *baseRepositoryImpl[T] {
	clone := *r
	clone.driver = drv
	return &clone
}

// keyFilter matches the primary key columns against pk. Bindings are named
// prefix for a single key and prefix0, prefix1, ... for a composite key.
func (r *baseRepositoryImpl[T]) keyFilter(pk interface{}, prefix string) (*types.Filter, error) {
	keys := r.mapper.PrimaryKeys()
	helper := r.driver.Helper()

	if len(keys) == 1 {
		if values, ok := pk.([]interface{}); ok {
			if len(values) != 1 {
				return nil, fmt.Errorf("%w: %s expects 1 value, got %d", ErrPrimaryKeyInvalid, r.mapper.Table(), len(values))
			}
			pk = values[0]
		}
		return types.NewFilter(helper.QuoteIdent(keys[0])+" = :"+prefix, types.Params{prefix: pk}), nil
	}

	values, ok := pk.([]interface{})
	if !ok || len(values) != len(keys) {
		return nil, fmt.Errorf("%w: %s expects %d values", ErrPrimaryKeyInvalid, r.mapper.Table(), len(keys))
	}
	conds := make([]string, len(keys))
	params := make(types.Params, len(keys))
	for i, col := range keys {
		name := prefix + strconv.Itoa(i)
		conds[i] = helper.QuoteIdent(col) + " = :" + name
		params[name] = values[i]
	}
	return types.NewFilter(strings.Join(conds, " AND "), params), nil
}

func (r *baseRepositoryImpl[T]) trace(op string, stmt *query.Statement) {
	if len(stmt.Unused) > 0 {
		r.logger.Warn("filter bindings not referenced by any placeholder",
			"table", r.mapper.Table(), "op", op, "unused", strings.Join(stmt.Unused, ","))
	}
	r.logger.Debug("statement", "table", r.mapper.Table(), "op", op, "sql", stmt.SQL)
}

func (r *baseRepositoryImpl[T]) logWriteError(op string, err error) {
	if is, kind := database.IsSqlError(err); is {
		r.logger.Warn("write failed", "table", r.mapper.Table(), "op", op, "kind", kind.String(), "error", err)
	}
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("repository: unexpected count type %T", v)
	}
}

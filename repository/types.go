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
	"iter"

	"github.com/tomoncle/microrm/database"
	"github.com/tomoncle/microrm/driver"
	"github.com/tomoncle/microrm/mapper"
	"github.com/tomoncle/microrm/query"
	"github.com/tomoncle/microrm/types"
)

// FetchRepository reads and hydrates records.
type FetchRepository[T any] interface {
	// Get returns the record with primary key pk. Composite keys are passed
	// as a []interface{} in key column order. Get returns nil, without an
	// error, when no row or more than one row matches.
	Get(ctx context.Context, pk interface{}) (*T, error)

	GetByFilter(ctx context.Context, filter *types.Filter, forUpdate bool) ([]*T, error)

	GetByQuery(ctx context.Context, q *query.Query) ([]*T, error)

	// GetByQueryMulti hydrates every row once per mapper: the repository's
	// own mapper first, then others in order.
	GetByQueryMulti(ctx context.Context, q *query.Query, others ...mapper.Hydrator) ([][]interface{}, error)

	// Iterate is the lazy form of GetByQueryMulti. The sequence reads the
	// driver rows as it is ranged over and can be ranged over only once.
	Iterate(ctx context.Context, q *query.Query, others ...mapper.Hydrator) iter.Seq2[[]interface{}, error]

	All(ctx context.Context) ([]*T, error)

	Count(ctx context.Context, filter *types.Filter) (int, error)
}

// WriteRepository persists and removes records.
type WriteRepository[T any] interface {
	Delete(ctx context.Context, pk interface{}) (bool, error)

	DeleteByQuery(ctx context.Context, u *query.Updatable) (bool, error)

	// Save inserts instance when its primary key is empty or unknown to the
	// table and updates it otherwise. The stored values, generated key
	// included, are bound back onto instance.
	Save(ctx context.Context, instance *T) (*T, error)

	// SetBeforeInsert replaces the before-insert hook. It is not synchronized
	// with saves running concurrently.
	SetBeforeInsert(hook Hook)

	// SetBeforeUpdate replaces the before-update hook. It is not synchronized
	// with saves running concurrently.
	SetBeforeUpdate(hook Hook)
}

// PageQueryRepository defines pagination functionality for listing records.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// TransactionRepository runs work against a transaction.
type TransactionRepository[T any] interface {
	// RunInTx calls fn with a repository bound to a new transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, repo Repository[T]) error) error
}

// Repository combines fetch, write, pagination and transactional operations
// over the records described by one mapper.
type Repository[T any] interface {
	FetchRepository[T]
	WriteRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	Mapper() *mapper.Mapper[T]
	Driver() driver.Driver
}

// Hook receives the column map about to be written and returns the map to
// write. Returning an error or an empty map aborts the save.
type Hook func(values map[string]interface{}) (map[string]interface{}, error)

type Hooks struct {
	BeforeInsert Hook
	BeforeUpdate Hook
}

// Options configures a repository. The zero value is usable.
type Options struct {
	Hooks  Hooks
	Logger database.Logger
}

func identityHook(values map[string]interface{}) (map[string]interface{}, error) {
	return values, nil
}

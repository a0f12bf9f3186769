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

package microrm

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/tomoncle/microrm/database"
	"github.com/tomoncle/microrm/driver"
	"github.com/tomoncle/microrm/mapper"
	"github.com/tomoncle/microrm/query"
	"github.com/tomoncle/microrm/repository"
	"github.com/tomoncle/microrm/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single record by its primary key, or nil.
	Get(ctx context.Context, pk any) (*T, error)

	// All returns every record of the table.
	All(ctx context.Context) ([]*T, error)

	// List returns records matching filter.
	List(ctx context.Context, filter *types.Filter) ([]*T, error)

	// Query runs a prepared select and hydrates one record per row.
	Query(ctx context.Context, q *query.Query) ([]*T, error)

	// Count returns the number of records matching filter.
	Count(ctx context.Context, filter *types.Filter) (int, error)

	// Page returns a paginated list of records.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts or updates a record.
	Save(ctx context.Context, model *T) (*T, error)

	// Delete removes a record by its primary key.
	Delete(ctx context.Context, pk any) (bool, error)

	// RunInTx runs fn against a repository bound to a transaction.
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, repo repository.Repository[T]) error) error

	// Repository exposes the underlying repository.
	Repository() (repository.Repository[T], error)
}

type baseServiceImpl[T any] struct {
	db   func() *bun.DB
	opts *repository.Options
	mu   sync.Mutex
	repo repository.Repository[T]
}

// NewService returns a Service over the global database connection. The
// mapper registered for T is used, or one derived from T's bun model.
func NewService[T any](opts *repository.Options) Service[T] {
	return &baseServiceImpl[T]{db: database.GetDB, opts: opts}
}

// NewServiceWithDB returns a Service over db.
func NewServiceWithDB[T any](db *bun.DB, opts *repository.Options) Service[T] {
	return &baseServiceImpl[T]{db: func() *bun.DB { return db }, opts: opts}
}

// Repository builds the repository on first successful use. Until the
// database is initialized every call reports an error and is retried on
// the next one.
func (s *baseServiceImpl[T]) Repository() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo != nil {
		return s.repo, nil
	}

	db := s.db()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	m, ok := mapper.Lookup[T]()
	if !ok {
		var err error
		if m, err = mapper.FromModel[T](db.Dialect()); err != nil {
			return nil, err
		}
	}
	s.repo = repository.NewRepository[T](driver.New(db), m, s.opts)
	return s.repo, nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, pk any) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, pk)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.All(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.Filter) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetByFilter(ctx, filter, false)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, q *query.Query) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetByQuery(ctx, q)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter *types.Filter) (int, error) {
	repo, err := s.Repository()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, filter)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model *T) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Save(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, pk any) (bool, error) {
	repo, err := s.Repository()
	if err != nil {
		return false, err
	}
	return repo.Delete(ctx, pk)
}

func (s *baseServiceImpl[T]) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, repo repository.Repository[T]) error) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.RunInTx(ctx, opts, fn)
}

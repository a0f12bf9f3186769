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

package driver

import (
	"context"
	"errors"

	"github.com/tomoncle/microrm/query"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

// ErrNoInsertedID is returned when an insert reports no generated key.
var ErrNoInsertedID = errors.New("driver: insert returned no generated id")

// Helper carries the dialect specific parts of statement execution.
type Helper interface {
	// Name is the dialect name: "pg", "mysql", "sqlite".
	Name() string

	// QuoteIdent quotes a column or table identifier.
	QuoteIdent(name string) string

	// SupportsForUpdate reports whether SELECT ... FOR UPDATE is valid.
	SupportsForUpdate() bool

	// ExecuteAndGetInsertedID runs the INSERT described by u and values and
	// returns the key the database generated for column pk.
	ExecuteAndGetInsertedID(ctx context.Context, drv Driver, u *query.Updatable, values map[string]interface{}, pk string) (interface{}, error)
}

type dialectHelper struct {
	dialect   schema.Dialect
	returning bool
}

var _ Helper = (*dialectHelper)(nil)

// NewHelper returns the helper for a bun dialect.
func NewHelper(d schema.Dialect) Helper {
	return &dialectHelper{
		dialect:   d,
		returning: d.Features().Has(feature.InsertReturning),
	}
}

func (h *dialectHelper) Name() string { return h.dialect.Name().String() }

func (h *dialectHelper) QuoteIdent(name string) string {
	return string(dialect.AppendIdent(nil, name, h.dialect.IdentQuote()))
}

func (h *dialectHelper) SupportsForUpdate() bool {
	return query.SupportsForUpdate(h.dialect)
}

// ExecuteAndGetInsertedID reads the key through RETURNING when the dialect
// has it and from LastInsertId otherwise.
func (h *dialectHelper) ExecuteAndGetInsertedID(ctx context.Context, drv Driver, u *query.Updatable, values map[string]interface{}, pk string) (interface{}, error) {
	if h.returning {
		stmt, err := u.Returning(pk).BuildInsert(values, drv.DB())
		if err != nil {
			return nil, err
		}
		for row, err := range drv.Iterate(ctx, stmt) {
			if err != nil {
				return nil, err
			}
			return row[pk], nil
		}
		return nil, ErrNoInsertedID
	}

	stmt, err := u.BuildInsert(values, drv.DB())
	if err != nil {
		return nil, err
	}
	res, err := drv.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return id, nil
}

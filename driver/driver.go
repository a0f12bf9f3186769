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
	"database/sql"
	"iter"

	"github.com/tomoncle/microrm/query"
	"github.com/tomoncle/microrm/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Driver executes rendered statements.
type Driver interface {
	// Execute runs a statement that returns no rows.
	Execute(ctx context.Context, stmt *query.Statement) (sql.Result, error)

	// Iterate runs a query lazily. The sequence is forward only and must be
	// ranged over at most once; breaking out of the loop releases the rows.
	Iterate(ctx context.Context, stmt *query.Statement) iter.Seq2[types.Row, error]

	// Helper returns the dialect specific helper.
	Helper() Helper

	// Dialect exposes the bun dialect, used for record metadata.
	Dialect() schema.Dialect

	// DB is the bun database or transaction statements are built for.
	DB() bun.IDB

	// RunInTx calls fn with a driver bound to a new transaction, committing
	// when fn returns nil and rolling back otherwise.
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx Driver) error) error
}

type bunDriver struct {
	db     bun.IDB
	helper Helper
}

var _ Driver = (*bunDriver)(nil)

// New returns a Driver over a bun database or transaction. Statements go
// through bun, so query hooks registered on the DB observe them.
func New(db bun.IDB) Driver {
	return &bunDriver{db: db, helper: NewHelper(db.Dialect())}
}

// Execute passes Args to bun only when present: rendered statements are
// final SQL and must not be formatted a second time.
func (d *bunDriver) Execute(ctx context.Context, stmt *query.Statement) (sql.Result, error) {
	if len(stmt.Args) == 0 {
		return d.db.ExecContext(ctx, stmt.SQL)
	}
	return d.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
}

func (d *bunDriver) query(ctx context.Context, stmt *query.Statement) (*sql.Rows, error) {
	if len(stmt.Args) == 0 {
		return d.db.QueryContext(ctx, stmt.SQL)
	}
	return d.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
}

func (d *bunDriver) Iterate(ctx context.Context, stmt *query.Statement) iter.Seq2[types.Row, error] {
	return func(yield func(types.Row, error) bool) {
		rows, err := d.query(ctx, stmt)
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() { _ = rows.Close() }()

		cols, err := rows.Columns()
		if err != nil {
			yield(nil, err)
			return
		}
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, err)
				return
			}
			row := make(types.Row, len(cols))
			for i, col := range cols {
				row[col] = normalize(values[i])
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (d *bunDriver) Helper() Helper { return d.helper }

func (d *bunDriver) Dialect() schema.Dialect { return d.db.Dialect() }

func (d *bunDriver) DB() bun.IDB { return d.db }

func (d *bunDriver) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx Driver) error) error {
	return d.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunDriver{db: &tx, helper: d.helper})
	})
}

// normalize turns driver byte slices into strings; text columns come back
// as []byte from some drivers and as string from others.
func normalize(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

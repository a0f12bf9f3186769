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

package query

import (
	"github.com/tomoncle/microrm/types"
	"github.com/uptrace/bun"
)

// Updatable accumulates the table, field list and filters of an INSERT,
// UPDATE or DELETE. Rendering never modifies it.
type Updatable struct {
	table     string
	fields    []string
	where     []*types.Filter
	returning string
}

// NewUpdatable starts a write statement on table.
func NewUpdatable(table string) *Updatable {
	return &Updatable{table: table}
}

// Fields appends fields to write, skipping duplicates.
func (u *Updatable) Fields(fields ...string) *Updatable {
	for _, f := range fields {
		u.AddField(f)
	}
	return u
}

// AddField appends a single field unless it is already declared.
func (u *Updatable) AddField(field string) *Updatable {
	for _, f := range u.fields {
		if f == field {
			return u
		}
	}
	u.fields = append(u.fields, field)
	return u
}

// DeclaredFields returns the field list in declaration order.
func (u *Updatable) DeclaredFields() []string {
	return append([]string(nil), u.fields...)
}

// Where adds a predicate for UPDATE and DELETE.
func (u *Updatable) Where(text string, params types.Params) *Updatable {
	return u.WhereFilter(types.NewFilter(text, params))
}

// WhereFilter adds a prepared filter. Nil and empty filters are ignored.
func (u *Updatable) WhereFilter(f *types.Filter) *Updatable {
	if !f.IsEmpty() {
		u.where = append(u.where, f)
	}
	return u
}

// present returns the declared fields that have a value in params.
func (u *Updatable) present(params map[string]interface{}) []string {
	out := make([]string, 0, len(u.fields))
	for _, f := range u.fields {
		if _, ok := params[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Returning asks BuildInsert to return column from the inserted row.
func (u *Updatable) Returning(column string) *Updatable {
	u.returning = column
	return u
}

// BuildInsert renders an INSERT of the declared fields found in params.
// Declared fields without a value are left to the column default. Columns
// render in name order.
func (u *Updatable) BuildInsert(params map[string]interface{}, db bun.IDB) (*Statement, error) {
	if u.table == "" {
		return nil, ErrNoTable
	}
	fields := u.present(params)
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	values := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		values[f] = params[f]
	}
	table, args := ident(u.table)
	ins := db.NewInsert().Model(&values).TableExpr(table, args...)
	if u.returning != "" {
		ins.Returning("?", bun.Ident(u.returning))
	}
	return render(db, ins, nil)
}

// BuildUpdate renders an UPDATE setting the declared fields found in params,
// scoped by the accumulated filters.
func (u *Updatable) BuildUpdate(params map[string]interface{}, db bun.IDB) (*Statement, error) {
	if u.table == "" {
		return nil, ErrNoTable
	}
	if len(u.where) == 0 {
		return nil, ErrNoFilter
	}
	fields := u.present(params)
	if len(fields) == 0 {
		return nil, ErrNoFields
	}
	preds, unused, err := compileWhere(u.where)
	if err != nil {
		return nil, err
	}

	table, args := ident(u.table)
	upd := db.NewUpdate().TableExpr(table, args...)
	for _, f := range fields {
		upd.Set("? = ?", bun.Ident(f), params[f])
	}
	for _, p := range preds {
		upd.Where(p.sql, p.args...)
	}
	return render(db, upd, unused)
}

// BuildDelete renders a DELETE scoped by the accumulated filters.
func (u *Updatable) BuildDelete(db bun.IDB) (*Statement, error) {
	if u.table == "" {
		return nil, ErrNoTable
	}
	if len(u.where) == 0 {
		return nil, ErrNoFilter
	}
	preds, unused, err := compileWhere(u.where)
	if err != nil {
		return nil, err
	}

	table, args := ident(u.table)
	del := db.NewDelete().TableExpr(table, args...)
	for _, p := range preds {
		del.Where(p.sql, p.args...)
	}
	return render(db, del, unused)
}

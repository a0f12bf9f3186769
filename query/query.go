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

type join struct {
	kind  string
	table string
	on    string
}

// Query is a SELECT under construction. Build it fresh for every call.
type Query struct {
	table     string
	fields    []string
	joins     []join
	where     []*types.Filter
	groupBy   []string
	orderBy   []string
	offset    int
	limit     int
	forUpdate bool
}

// NewQuery returns an empty select query.
func NewQuery() *Query {
	return &Query{}
}

// Table sets the FROM clause; an alias may follow the name ("users u").
func (q *Query) Table(name string) *Query {
	q.table = name
	return q
}

// Fields sets the projection. Without fields the query selects "*".
func (q *Query) Fields(fields ...string) *Query {
	q.fields = append(q.fields, fields...)
	return q
}

// Join adds an INNER JOIN.
func (q *Query) Join(table, on string) *Query {
	q.joins = append(q.joins, join{"INNER JOIN", table, on})
	return q
}

// LeftJoin adds a LEFT JOIN.
func (q *Query) LeftJoin(table, on string) *Query {
	q.joins = append(q.joins, join{"LEFT JOIN", table, on})
	return q
}

// Where adds a predicate; predicates are combined with AND.
func (q *Query) Where(text string, params types.Params) *Query {
	return q.WhereFilter(types.NewFilter(text, params))
}

// WhereFilter adds a prepared filter. Nil and empty filters are ignored.
func (q *Query) WhereFilter(f *types.Filter) *Query {
	if !f.IsEmpty() {
		q.where = append(q.where, f)
	}
	return q
}

func (q *Query) GroupBy(fields ...string) *Query {
	q.groupBy = append(q.groupBy, fields...)
	return q
}

// OrderBy appends ordering terms such as "name DESC".
func (q *Query) OrderBy(fields ...string) *Query {
	q.orderBy = append(q.orderBy, fields...)
	return q
}

// Limit restricts the result to count rows starting at offset.
func (q *Query) Limit(offset, count int) *Query {
	q.offset = offset
	q.limit = count
	return q
}

// ForUpdate locks the selected rows where the dialect supports it.
func (q *Query) ForUpdate() *Query {
	q.forUpdate = true
	return q
}

// Build renders the SELECT statement with bun's select builder.
func (q *Query) Build(db bun.IDB) (*Statement, error) {
	sel, unused, err := q.selectFrom(db)
	if err != nil {
		return nil, err
	}
	for _, f := range q.fields {
		sel.ColumnExpr(f)
	}
	for _, o := range q.orderBy {
		sel.OrderExpr(o)
	}
	if q.limit > 0 {
		sel.Limit(q.limit)
		if q.offset > 0 {
			sel.Offset(q.offset)
		}
	}
	if q.forUpdate && SupportsForUpdate(db.Dialect()) {
		sel.For("UPDATE")
	}
	return render(db, sel, unused)
}

// BuildCount renders a statement returning the number of matching rows in
// a single "total" column. Ordering, limits and locking are ignored.
func (q *Query) BuildCount(db bun.IDB) (*Statement, error) {
	sel, unused, err := q.selectFrom(db)
	if err != nil {
		return nil, err
	}
	if len(q.groupBy) == 0 {
		return render(db, sel.ColumnExpr("COUNT(*) AS total"), unused)
	}
	grouped := db.NewSelect().
		ColumnExpr("COUNT(*) AS total").
		TableExpr("(?) AS grouped", sel.ColumnExpr("1"))
	return render(db, grouped, unused)
}

// selectFrom starts a select with the FROM, JOIN, WHERE and GROUP BY
// clauses of q.
func (q *Query) selectFrom(db bun.IDB) (*bun.SelectQuery, []string, error) {
	if q.table == "" {
		return nil, nil, ErrNoTable
	}
	preds, unused, err := compileWhere(q.where)
	if err != nil {
		return nil, nil, err
	}

	table, args := ident(q.table)
	sel := db.NewSelect().TableExpr(table, args...)
	for _, j := range q.joins {
		expr, args := ident(j.table)
		sel.Join(j.kind+" "+expr, args...).JoinOn(j.on)
	}
	for _, p := range preds {
		sel.Where(p.sql, p.args...)
	}
	for _, g := range q.groupBy {
		sel.GroupExpr(g)
	}
	return sel, unused, nil
}

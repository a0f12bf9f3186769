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
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/microrm/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT, age INTEGER)",
		"CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, title TEXT)",
		"CREATE TABLE likes (post_id INTEGER)",
		"INSERT INTO users (id, name, age) VALUES (1, 'Ann', 30), (2, 'Bob', 17), (3, 'who?', 30)",
		"INSERT INTO posts (id, user_id, title) VALUES (10, 1, 'a'), (11, 1, 'b'), (12, 2, 'c')",
		"INSERT INTO likes (post_id) VALUES (10)",
	} {
		_, err := db.ExecContext(context.Background(), stmt)
		require.NoError(t, err)
	}
	return db
}

func column[V any](t *testing.T, db *bun.DB, stmt *Statement) []V {
	t.Helper()
	rows, err := db.QueryContext(context.Background(), stmt.SQL)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var out []V
	for rows.Next() {
		var v V
		require.NoError(t, rows.Scan(&v))
		out = append(out, v)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestBuildSelect(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewQuery().
		Table("users").
		Fields("name").
		Where("age >= :age", types.Params{"age": 18}).
		OrderBy("id DESC").
		Limit(1, 1).
		Build(db)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stmt.SQL, `SELECT name FROM "users" WHERE (age >= 18)`), stmt.SQL)
	assert.Contains(t, stmt.SQL, "ORDER BY id DESC")
	assert.Contains(t, stmt.SQL, "LIMIT 1")
	assert.Contains(t, stmt.SQL, "OFFSET 1")
	assert.Empty(t, stmt.Args)
	assert.Empty(t, stmt.Unused)
	assert.Equal(t, []string{"Ann"}, column[string](t, db, stmt))
}

func TestBuildSelectDefaults(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewQuery().Table("users").Build(db)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "users"`, stmt.SQL)

	_, err = NewQuery().Build(db)
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestBuildSelectJoinsAndFilters(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewQuery().
		Table("users u").
		Fields("p.id").
		Join("posts p", "p.user_id = u.id").
		LeftJoin("likes", "likes.post_id = p.id").
		Where("u.id = :id", types.Params{"id": 1}).
		WhereFilter(nil).
		Where("likes.post_id IS NULL", nil).
		OrderBy("p.id").
		Build(db)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "FROM users u INNER JOIN posts p ON")
	assert.Contains(t, stmt.SQL, `LEFT JOIN "likes" ON`)
	assert.Contains(t, stmt.SQL, "WHERE (u.id = 1) AND (likes.post_id IS NULL)")
	assert.Equal(t, []int64{11}, column[int64](t, db, stmt))
}

func TestForUpdateDependsOnDialect(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewQuery().Table("users").ForUpdate().Build(db)
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, "FOR UPDATE")
	assert.False(t, SupportsForUpdate(db.Dialect()))
}

func TestBuildCount(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewQuery().
		Table("users").
		Where("age > :age", types.Params{"age": 18}).
		OrderBy("id").
		Limit(0, 1).
		BuildCount(db)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) AS total FROM "users" WHERE (age > 18)`, stmt.SQL)
	assert.Equal(t, []int{2}, column[int](t, db, stmt))

	stmt, err = NewQuery().Table("users").GroupBy("age").BuildCount(db)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "GROUP BY age")
	assert.Equal(t, []int{2}, column[int](t, db, stmt))
}

func TestMissingParam(t *testing.T) {
	db := newTestDB(t)
	_, err := NewQuery().Table("users").Where("id = :id", nil).Build(db)
	assert.ErrorIs(t, err, ErrMissingParam)
	assert.Contains(t, err.Error(), `"id"`)
}

func TestUnusedBindingsAreReported(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewQuery().
		Table("users").
		Where("id = :id", types.Params{"id": 1, "zeta": 2, "alpha": 3}).
		Build(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, stmt.Unused)
}

func TestLiteralQuestionMarks(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewQuery().
		Table("users").
		Fields("id").
		Where("name = 'who?' OR id = :id", types.Params{"id": 2}).
		OrderBy("id").
		Build(db)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `WHERE (name = 'who?' OR id = 2)`)
	assert.Equal(t, []int64{2, 3}, column[int64](t, db, stmt))
}

func TestPlaceholderRendering(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		params types.Params
		sql    string
		args   []interface{}
	}{
		{
			name:   "slice expands",
			text:   "id IN (:ids)",
			params: types.Params{"ids": []int{1, 2, 3}},
			sql:    "id IN (?, ?, ?)",
			args:   []interface{}{1, 2, 3},
		},
		{
			name:   "empty slice",
			text:   "id IN (:ids)",
			params: types.Params{"ids": []string{}},
			sql:    "id IN (NULL)",
			args:   []interface{}{},
		},
		{
			name:   "bytes stay one value",
			text:   "data = :data",
			params: types.Params{"data": []byte("ab")},
			sql:    "data = ?",
			args:   []interface{}{[]byte("ab")},
		},
		{
			name:   "quoted literal untouched",
			text:   "name = ':name' AND id = :id",
			params: types.Params{"id": 7},
			sql:    "name = ':name' AND id = ?",
			args:   []interface{}{7},
		},
		{
			name:   "question mark in literal escaped",
			text:   `name = 'who?' OR note = "a?b"`,
			sql:    `name = 'who\?' OR note = "a\?b"`,
			args:   []interface{}{},
		},
		{
			name:   "bare question mark escaped",
			text:   "tags ? 'x'",
			sql:    `tags \? 'x'`,
			args:   []interface{}{},
		},
		{
			name:   "cast untouched",
			text:   "created::date = :day",
			params: types.Params{"day": "2025-01-01"},
			sql:    "created::date = ?",
			args:   []interface{}{"2025-01-01"},
		},
		{
			name:   "repeated name",
			text:   "a = :v OR b = :v",
			params: types.Params{"v": 1},
			sql:    "a = ? OR b = ?",
			args:   []interface{}{1, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, unused, err := compileFilter(types.NewFilter(tt.text, tt.params), []interface{}{})
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
			assert.Empty(t, unused)
		})
	}
}

func TestBuildInsert(t *testing.T) {
	db := newTestDB(t)
	u := NewUpdatable("users").Fields("id", "name", "name", "email")
	assert.Equal(t, []string{"id", "name", "email"}, u.DeclaredFields())

	stmt, err := u.BuildInsert(map[string]interface{}{"name": "O'Neil?", "email": "a@x", "other": 1}, db)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `INSERT INTO "users" ("email", "name") VALUES ('a@x', 'O''Neil?')`)
	assert.Empty(t, stmt.Args)

	// rendering leaves the builder untouched
	assert.Equal(t, []string{"id", "name", "email"}, u.DeclaredFields())

	_, err = db.ExecContext(context.Background(), stmt.SQL)
	require.NoError(t, err)
	names := column[string](t, db, &Statement{SQL: "SELECT name FROM users WHERE email = 'a@x'"})
	assert.Equal(t, []string{"O'Neil?"}, names)

	_, err = u.BuildInsert(map[string]interface{}{"other": 1}, db)
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestBuildInsertReturning(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewUpdatable("users").Fields("name").Returning("id").
		BuildInsert(map[string]interface{}{"name": "Cy"}, db)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `RETURNING "id"`)
	assert.Equal(t, []int64{4}, column[int64](t, db, stmt))
}

func TestBuildUpdate(t *testing.T) {
	db := newTestDB(t)
	u := NewUpdatable("users").
		Fields("name", "email").
		Where("id = :_id", types.Params{"_id": 2})

	stmt, err := u.BuildUpdate(map[string]interface{}{"name": "Bo?", "email": nil}, db)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `SET "name" = 'Bo?', "email" = NULL`)
	assert.Contains(t, stmt.SQL, "WHERE (id = 2)")

	_, err = db.ExecContext(context.Background(), stmt.SQL)
	require.NoError(t, err)
	names := column[string](t, db, &Statement{SQL: "SELECT name FROM users WHERE id = 2"})
	assert.Equal(t, []string{"Bo?"}, names)

	_, err = NewUpdatable("users").Fields("name").BuildUpdate(map[string]interface{}{"name": "x"}, db)
	assert.ErrorIs(t, err, ErrNoFilter)
}

func TestBuildDelete(t *testing.T) {
	db := newTestDB(t)
	stmt, err := NewUpdatable("users").
		Where("id IN (:ids)", types.Params{"ids": []int64{1, 2}}).
		BuildDelete(db)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stmt.SQL, `DELETE FROM "users"`), stmt.SQL)
	assert.Contains(t, stmt.SQL, "WHERE (id IN (1, 2))")

	_, err = db.ExecContext(context.Background(), stmt.SQL)
	require.NoError(t, err)
	assert.Equal(t, []string{"who?"}, column[string](t, db, &Statement{SQL: "SELECT name FROM users"}))

	_, err = NewUpdatable("users").BuildDelete(db)
	assert.ErrorIs(t, err, ErrNoFilter)

	_, err = NewUpdatable("").Where("id = 1", nil).BuildDelete(db)
	assert.ErrorIs(t, err, ErrNoTable)
}

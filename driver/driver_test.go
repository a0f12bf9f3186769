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

package driver_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/microrm/driver"
	"github.com/tomoncle/microrm/query"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestHelperPerDialect(t *testing.T) {
	mysql := driver.NewHelper(mysqldialect.New())
	assert.Equal(t, "mysql", mysql.Name())
	assert.Equal(t, "`users`.`id`", mysql.QuoteIdent("users.id"))
	assert.True(t, mysql.SupportsForUpdate())

	pg := driver.NewHelper(pgdialect.New())
	assert.Equal(t, "pg", pg.Name())
	assert.Equal(t, `"users"."id"`, pg.QuoteIdent("users.id"))
	assert.Equal(t, `"a""b"`, pg.QuoteIdent(`a"b`))
	assert.True(t, pg.SupportsForUpdate())

	sqlite := driver.NewHelper(sqlitedialect.New())
	assert.Equal(t, "sqlite", sqlite.Name())
	assert.Equal(t, `"id"`, sqlite.QuoteIdent("id"))
	assert.False(t, sqlite.SupportsForUpdate())
}

func newDriver(t *testing.T) driver.Driver {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(context.Background(),
		"CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, data BLOB)")
	require.NoError(t, err)
	return driver.New(db)
}

func TestExecuteAndIterate(t *testing.T) {
	drv := newDriver(t)
	ctx := context.Background()

	res, err := drv.Execute(ctx, &query.Statement{
		SQL:  "INSERT INTO items (name, data) VALUES (?, ?), (?, ?)",
		Args: []interface{}{"a", "x", "b", "y"},
	})
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	var names []string
	for row, err := range drv.Iterate(ctx, &query.Statement{SQL: "SELECT id, name, data FROM items ORDER BY id"}) {
		require.NoError(t, err)
		assert.IsType(t, "", row["name"])
		names = append(names, row["name"].(string))
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestIterateReportsQueryError(t *testing.T) {
	drv := newDriver(t)

	var errs []error
	for _, err := range drv.Iterate(context.Background(), &query.Statement{SQL: "SELECT * FROM missing"}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Error(t, errs[0])
}

func TestExecuteAndGetInsertedID(t *testing.T) {
	drv := newDriver(t)
	ctx := context.Background()

	for want := int64(1); want <= 2; want++ {
		id, err := drv.Helper().ExecuteAndGetInsertedID(ctx, drv,
			query.NewUpdatable("items").Fields("name"), map[string]interface{}{"name": "n?"}, "id")
		require.NoError(t, err)
		assert.EqualValues(t, want, id)
	}

	var names []string
	for row, err := range drv.Iterate(ctx, &query.Statement{SQL: "SELECT name FROM items"}) {
		require.NoError(t, err)
		names = append(names, row["name"].(string))
	}
	assert.Equal(t, []string{"n?", "n?"}, names)
}

func TestExecuteRenderedStatementKeepsLiterals(t *testing.T) {
	drv := newDriver(t)
	ctx := context.Background()

	_, err := drv.Execute(ctx, &query.Statement{SQL: "INSERT INTO items (name) VALUES ('a?b')"})
	require.NoError(t, err)

	stmt, err := query.NewQuery().Table("items").Fields("name").
		Where("name = 'a?b' AND id > :id", map[string]interface{}{"id": 0}).
		Build(drv.DB())
	require.NoError(t, err)

	var names []string
	for row, err := range drv.Iterate(ctx, stmt) {
		require.NoError(t, err)
		names = append(names, row["name"].(string))
	}
	assert.Equal(t, []string{"a?b"}, names)
}

func TestRunInTx(t *testing.T) {
	drv := newDriver(t)
	ctx := context.Background()
	insert := &query.Statement{SQL: "INSERT INTO items (name) VALUES ('t')"}
	count := func() int64 {
		for row, err := range drv.Iterate(ctx, &query.Statement{SQL: "SELECT COUNT(*) AS n FROM items"}) {
			require.NoError(t, err)
			return row["n"].(int64)
		}
		return -1
	}

	failed := errors.New("failed")
	err := drv.RunInTx(ctx, nil, func(ctx context.Context, tx driver.Driver) error {
		_, err := tx.Execute(ctx, insert)
		require.NoError(t, err)
		return failed
	})
	assert.ErrorIs(t, err, failed)
	assert.EqualValues(t, 0, count())

	err = drv.RunInTx(ctx, nil, func(ctx context.Context, tx driver.Driver) error {
		assert.Equal(t, "sqlite", tx.Helper().Name())
		_, err := tx.Execute(ctx, insert)
		return err
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count())
}

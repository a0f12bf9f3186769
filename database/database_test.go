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

package database_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/microrm/database"
)

func TestParseConfig(t *testing.T) {
	cfg, err := database.ParseConfig([]byte(`
connection_config:
  type: postgres
  host: db.local
  port: 5432
  dbname: app
  max_open_conns: 5
  slow_query_time: 250ms
data_init_config:
  auto_init_on_startup: true
  filepath: configs/sql
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	c := cfg.ConnectionConfig
	assert.Equal(t, "postgres", c.Type)
	assert.Equal(t, "db.local", c.Host)
	assert.Equal(t, 5432, c.Port)
	assert.Equal(t, 5, c.MaxOpenConns)
	assert.Equal(t, 250*time.Millisecond, c.SlowQueryTime)
	// untouched keys keep their defaults
	assert.Equal(t, 10, c.MaxIdleConns)
	assert.Equal(t, 10*time.Second, c.ConnectTimeout)

	assert.True(t, cfg.DataInitConfig.AutoInitOnStartup)
	assert.Equal(t, "configs/sql", cfg.DataInitConfig.Filepath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	_, err = database.ParseConfig([]byte("connection_config: ["))
	assert.Error(t, err)

	_, err = database.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")

	cfg := database.DefaultConnectionConfig()
	cfg.Host = "file-host"
	database.OverrideFromEnv(cfg)

	assert.Equal(t, "env-host", cfg.Host)
	assert.Equal(t, 3307, cfg.Port)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 100, cfg.MaxOpenConns)
	assert.True(t, cfg.EnableQueryLog)
}

func TestCreateFromConfigRejectsUnknownType(t *testing.T) {
	_, err := database.NewDatabaseFactory().CreateFromConfig(&database.Config{
		ConnectionConfig: database.ConnectionConfig{Type: "oracle"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")

	_, err = database.NewDatabaseFactory().CreateFromConfig(nil)
	assert.Error(t, err)
}

func TestIsSqlError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   bool
		kind database.SQLError
	}{
		{"nil", nil, false, database.UnknownErr},
		{"no rows", fmt.Errorf("get: %w", sql.ErrNoRows), true, database.NoRowsErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, database.DuplicateKeyErr},
		{"mysql wrapped", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1146}), true, database.NoTableErr},
		{"mysql other", &mysql.MySQLError{Number: 9999}, true, database.UnknownErr},
		{"pq not null", &pq.Error{Code: "23502"}, true, database.NotNullViolationErr},
		{"pgx undefined table", fmt.Errorf("select: %w", &pgconn.PgError{Code: "42P01"}), true, database.NoTableErr},
		{"pgx unknown state", &pgconn.PgError{Code: "XX000"}, true, database.UnknownErr},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), true, database.DuplicateKeyErr},
		{"sqlite column", errors.New("no such column: nope"), true, database.NoColumnErr},
		{"plain", errors.New("connection refused"), false, database.UnknownErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, kind := database.IsSqlError(tt.err)
			assert.Equal(t, tt.is, is)
			assert.Equal(t, tt.kind, kind)
		})
	}
	assert.Equal(t, "duplicate_key", database.DuplicateKeyErr.String())
}

func TestSplitStatements(t *testing.T) {
	stmts := database.SplitStatements(`
-- users
CREATE TABLE users (
  id INTEGER PRIMARY KEY,
  name TEXT
);

INSERT INTO users (id, name) VALUES (1, 'a');
INSERT INTO users (id, name) VALUES (2, 'b')
`)
	assert.Equal(t, []string{
		"CREATE TABLE users ( id INTEGER PRIMARY KEY, name TEXT )",
		"INSERT INTO users (id, name) VALUES (1, 'a')",
		"INSERT INTO users (id, name) VALUES (2, 'b')",
	}, stmts)
	assert.Empty(t, database.SplitStatements("-- nothing\n\n"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestInitDBRunsScriptsInOrder(t *testing.T) {
	sqlDir := t.TempDir()
	writeFile(t, sqlDir, "02_data.sql", "INSERT INTO notes (body) VALUES ('first');\nINSERT INTO notes (body) VALUES ('second');\n")
	writeFile(t, sqlDir, "01_schema.sql", "CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT);\n")
	writeFile(t, sqlDir, "readme.txt", "not sql")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, filepath.Dir(cfgPath), "config.yaml", fmt.Sprintf(`
connection_config:
  type: sqlite
  dsn: "file:initdb?mode=memory&cache=shared"
  max_open_conns: 1
  health_check_interval: 0s
data_init_config:
  auto_init_on_startup: true
  filepath: %q
`, sqlDir))

	db, err := database.InitDBFromFile(cfgPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })
	assert.Same(t, db, database.GetDB())

	var bodies []string
	rows, err := db.QueryContext(context.Background(), "SELECT body FROM notes ORDER BY id")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var b string
		require.NoError(t, rows.Scan(&b))
		bodies = append(bodies, b)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"first", "second"}, bodies)

	status := database.GetHealthStatus(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, 1, database.GetDatabaseStats().MaxOpenConns)
}

func TestExecScriptRollsBackOnError(t *testing.T) {
	factory := database.NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&database.Config{
		ConnectionConfig: database.ConnectionConfig{
			Type:           "sqlite",
			DSN:            "file:rollback?mode=memory&cache=shared",
			MaxOpenConns:   1,
			MaxIdleConns:   1,
			ConnectTimeout: time.Second,
		},
	})
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(context.Background(), false))
	t.Cleanup(func() { _ = factory.Close() })

	db := manager.GetDB()
	_, err = database.ExecScript(context.Background(), db, "CREATE TABLE t (id INTEGER);")
	require.NoError(t, err)

	_, err = database.ExecScript(context.Background(), db, "INSERT INTO t (id) VALUES (1);\nINSERT INTO missing (id) VALUES (2);")
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM t").Scan(&n))
	assert.Zero(t, n)
}

func TestStatementRecorder(t *testing.T) {
	factory := database.NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&database.Config{
		ConnectionConfig: database.ConnectionConfig{
			Type:           "sqlite",
			DSN:            "file:recorder?mode=memory&cache=shared",
			MaxOpenConns:   1,
			MaxIdleConns:   1,
			ConnectTimeout: time.Second,
		},
	})
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(context.Background(), false))
	t.Cleanup(func() { _ = factory.Close() })

	db := manager.GetDB()
	recorder := &database.StatementRecorder{}
	db.AddQueryHook(recorder)

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "CREATE TABLE r (id INTEGER)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO r (id) VALUES (?)", 5)
	require.NoError(t, err)

	last, ok := recorder.Last("insert")
	require.True(t, ok)
	assert.Equal(t, "INSERT INTO r (id) VALUES (5)", last.Query)
	assert.NoError(t, last.Err)
	assert.Len(t, recorder.Statements(), 2)

	_, ok = recorder.Last("DELETE")
	assert.False(t, ok)

	recorder.Reset()
	assert.Empty(t, recorder.Statements())
}

// Package database provides connection management over bun for MySQL,
// PostgreSQL and SQLite, YAML configuration, logging, query hooks, SQL
// error classification and a SQL script runner.
package database

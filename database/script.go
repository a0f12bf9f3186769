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

package database

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var scriptOrder = regexp.MustCompile(`^(\d+)_`)

// ExecScript runs every statement of a SQL script inside one transaction.
// Statements end with a ";" at the end of a line; "--" comment lines are
// skipped.
func ExecScript(ctx context.Context, db bun.IDB, script string) (int64, error) {
	statements := SplitStatements(script)
	if len(statements) == 0 {
		return 0, nil
	}

	var total int64
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range statements {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("failed to execute SQL statement: %s, error: %w", stmt, err)
			}
			n, _ := res.RowsAffected()
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ExecScriptFile reads path and runs it with ExecScript.
func ExecScriptFile(ctx context.Context, db bun.IDB, path string) (int64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}
	return ExecScript(ctx, db, string(content))
}

// ExecScriptDir runs every *.sql file under dir. Files named "<n>_..." run
// first, by n; the rest follow by name.
func ExecScriptDir(ctx context.Context, db bun.IDB, dir string, logger Logger) error {
	if logger == nil {
		logger = NopLogger{}
	}
	files, err := scriptFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to list SQL files: %w", err)
	}
	if len(files) == 0 {
		logger.Info("no SQL files found to execute", "sql_path", dir)
		return nil
	}

	for _, file := range files {
		start := time.Now()
		rows, err := ExecScriptFile(ctx, db, file)
		if err != nil {
			logger.Error("SQL file execution failed", "file", file, "error", err.Error())
			return fmt.Errorf("SQL file execution failed %s: %w", file, err)
		}
		logger.Info("SQL file executed",
			"file", file,
			"duration", time.Since(start).String(),
			"rows_affected", rows,
		)
	}
	return nil
}

func scriptFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		oi, oj := fileOrder(files[i]), fileOrder(files[j])
		if oi != oj {
			return oi < oj
		}
		return files[i] < files[j]
	})
	return files, nil
}

func fileOrder(path string) int {
	m := scriptOrder.FindStringSubmatch(filepath.Base(path))
	if len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 999
}

// SplitStatements breaks a script into statements.
func SplitStatements(content string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		stmt = strings.TrimSuffix(stmt, ";")
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}

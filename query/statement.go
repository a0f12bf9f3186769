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
	"errors"
	"regexp"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

var (
	ErrMissingParam = errors.New("query: placeholder has no bound value")
	ErrNoTable      = errors.New("query: table is not set")
	ErrNoFields     = errors.New("query: no fields to write")
	ErrNoFilter     = errors.New("query: update and delete require a filter")
)

// Statement is SQL ready for execution. Statements rendered by the builders
// carry their values inline and have no Args; hand-written statements may
// use positional "?" parameters.
type Statement struct {
	SQL  string
	Args []interface{}
	// Unused lists bindings that no placeholder referenced.
	Unused []string
}

// SupportsForUpdate reports whether SELECT ... FOR UPDATE is valid for d.
func SupportsForUpdate(d schema.Dialect) bool {
	return d.Name() != dialect.SQLite
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ident returns a bun expression for name: quoted when name is a plain
// identifier, raw for expressions such as "users u".
func ident(name string) (string, []interface{}) {
	if plainIdent.MatchString(name) {
		return "?", []interface{}{bun.Ident(name)}
	}
	return name, nil
}

// render formats a bun query with the dialect of db.
func render(db bun.IDB, q schema.QueryAppender, unused []string) (*Statement, error) {
	b, err := q.AppendQuery(schema.NewFormatter(db.Dialect()), nil)
	if err != nil {
		return nil, err
	}
	return &Statement{SQL: string(b), Unused: unused}, nil
}

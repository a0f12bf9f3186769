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
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tomoncle/microrm/types"
)

// compileFilter rewrites ":name" placeholders of f into the positional "?"
// markers of bun's formatter, appending the bound values to args. Slice
// values expand into a comma separated list so "id IN (:ids)" works. "::"
// casts and ":" inside quoted literals are kept; a literal "?" is escaped
// as "\?" so the formatter does not take it for a parameter. It returns
// the names bound but never referenced.
func compileFilter(f *types.Filter, args []interface{}) (string, []interface{}, []string, error) {
	var sb strings.Builder
	used := make(map[string]bool, len(f.Params))
	text := f.Text

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(text[i+1:], c)
			if end < 0 {
				writeEscaped(&sb, text[i:])
				i = len(text)
				continue
			}
			writeEscaped(&sb, text[i:i+end+2])
			i += end + 1
		case c == ':' && i+1 < len(text) && text[i+1] == ':':
			sb.WriteString("::")
			i++
		case c == ':' && i+1 < len(text) && isIdentStart(text[i+1]):
			j := i + 1
			for j < len(text) && isIdentChar(text[j]) {
				j++
			}
			name := text[i+1 : j]
			value, ok := f.Params[name]
			if !ok {
				return "", nil, nil, fmt.Errorf("%w: %q", ErrMissingParam, name)
			}
			used[name] = true
			args = appendPlaceholder(&sb, args, value)
			i = j - 1
		case c == '?':
			sb.WriteString(`\?`)
		default:
			sb.WriteByte(c)
		}
	}

	var unused []string
	for name := range f.Params {
		if !used[name] {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)
	return sb.String(), args, unused, nil
}

func appendPlaceholder(sb *strings.Builder, args []interface{}, value interface{}) []interface{} {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		if rv.Len() == 0 {
			sb.WriteString("NULL")
			return args
		}
		for k := 0; k < rv.Len(); k++ {
			if k > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('?')
			args = append(args, rv.Index(k).Interface())
		}
		return args
	}
	sb.WriteByte('?')
	return append(args, value)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func writeEscaped(sb *strings.Builder, literal string) {
	sb.WriteString(strings.ReplaceAll(literal, "?", `\?`))
}

// predicate is a compiled filter ready for bun's Where.
type predicate struct {
	sql  string
	args []interface{}
}

// compileWhere compiles every non-empty filter. Args are never nil so bun
// always runs the formatter over the predicate and unescapes "\?".
func compileWhere(filters []*types.Filter) ([]predicate, []string, error) {
	var preds []predicate
	var unused []string
	for _, f := range filters {
		if f.IsEmpty() {
			continue
		}
		text, args, names, err := compileFilter(f, make([]interface{}, 0, len(f.Params)))
		if err != nil {
			return nil, nil, err
		}
		preds = append(preds, predicate{sql: text, args: args})
		unused = append(unused, names...)
	}
	return preds, unused, nil
}

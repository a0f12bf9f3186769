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

package types

// Params binds placeholder names to values, e.g. {"id": 10} for ":id".
type Params map[string]interface{}

// Filter describes a WHERE predicate written with named placeholders
// (":name") and the values bound to them.
type Filter struct {
	Text   string
	Params Params
}

// NewFilter creates a filter from its predicate text and bindings.
func NewFilter(text string, params Params) *Filter {
	if params == nil {
		params = Params{}
	}
	return &Filter{Text: text, Params: params}
}

// IsEmpty reports whether the filter carries no predicate.
func (f *Filter) IsEmpty() bool {
	return f == nil || f.Text == ""
}

// Row is a single result row keyed by column name.
type Row map[string]interface{}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

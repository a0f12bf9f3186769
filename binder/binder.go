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

package binder

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/uptrace/bun/schema"
)

// ErrNotStruct is returned when a record is not a non-nil pointer to a struct.
var ErrNotStruct = errors.New("binder: record must be a non-nil pointer to a struct")

// Binder converts records to flat column maps and back. Column names are
// the ones bun derives for the struct (the `bun:"name"` tag or the snake
// cased Go field name), so the same struct can be used with bun queries.
//
// A Binder holds no per-call state and is safe for concurrent use.
type Binder struct {
	dialect schema.Dialect
}

// New returns a binder that reads struct metadata from the dialect's table
// cache.
func New(dialect schema.Dialect) *Binder {
	return &Binder{dialect: dialect}
}

func (b *Binder) table(instance interface{}) (*schema.Table, reflect.Value, error) {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, reflect.Value{}, ErrNotStruct
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return nil, reflect.Value{}, ErrNotStruct
	}
	return b.dialect.Tables().Get(v.Type()), v, nil
}

// Columns returns the bindable column names of the record type in
// declaration order.
func (b *Binder) Columns(instance interface{}) ([]string, error) {
	t, _, err := b.table(instance)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		cols = append(cols, f.Name)
	}
	return cols, nil
}

// ToMap flattens the record into a column -> value map. With includeAll set
// every bindable field is present, zero values included; otherwise fields
// holding their zero value are skipped.
func (b *Binder) ToMap(instance interface{}, includeAll bool) (map[string]interface{}, error) {
	t, strct, err := b.table(instance)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(t.Fields))
	for _, f := range t.Fields {
		fv := f.Value(strct)
		if !fv.IsValid() {
			continue
		}
		if !includeAll && fv.IsZero() {
			continue
		}
		out[f.Name] = fv.Interface()
	}
	return out, nil
}

// Bind copies values onto the record in place. Keys that do not name a
// column of the record are ignored.
func (b *Binder) Bind(values map[string]interface{}, instance interface{}) error {
	t, strct, err := b.table(instance)
	if err != nil {
		return err
	}
	for _, f := range t.Fields {
		val, ok := values[f.Name]
		if !ok {
			continue
		}
		if err := assign(f, strct, val); err != nil {
			return fmt.Errorf("binder: cannot bind %s.%s: %w", t.TypeName, f.Name, err)
		}
	}
	return nil
}

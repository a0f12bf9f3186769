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
	"reflect"

	"github.com/uptrace/bun/schema"
)

// assign stores val into the struct field. Directly assignable values and
// numeric/text conversions are set in place; everything else goes through
// bun's column scanner, which also understands sql.Scanner fields.
func assign(f *schema.Field, strct reflect.Value, val interface{}) error {
	dest := f.Value(strct)

	if val == nil {
		dest.Set(reflect.Zero(dest.Type()))
		return nil
	}

	// An empty string stands for "no value" on non-text fields.
	if s, ok := val.(string); ok && s == "" && !isText(dest.Type()) {
		dest.Set(reflect.Zero(dest.Type()))
		return nil
	}

	src := reflect.ValueOf(val)
	if setValue(dest, src) {
		return nil
	}
	if dest.Kind() == reflect.Ptr {
		elem := reflect.New(dest.Type().Elem())
		if setValue(elem.Elem(), src) {
			dest.Set(elem)
			return nil
		}
	}
	return f.ScanValue(strct, val)
}

func setValue(dest, src reflect.Value) bool {
	if src.Type().AssignableTo(dest.Type()) {
		dest.Set(src)
		return true
	}
	if isNumber(src.Kind()) && isNumber(dest.Kind()) {
		dest.Set(src.Convert(dest.Type()))
		return true
	}
	if src.Kind() == reflect.String && dest.Kind() == reflect.String {
		dest.SetString(src.String())
		return true
	}
	return false
}

func isText(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.String
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

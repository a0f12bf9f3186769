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

package mapper

import (
	"reflect"

	"github.com/google/uuid"
	"github.com/tomoncle/microrm/types"
)

type omitted struct{}

// Omit is returned by a WriteMask to leave the field out of insert and
// update statements.
var Omit interface{} = omitted{}

// IsOmit reports whether a write mask result asks for the field to be
// dropped.
func IsOmit(v interface{}) bool {
	_, ok := v.(omitted)
	return ok
}

// StandardRead returns the raw column value unchanged.
func StandardRead[T any]() ReadMask[T] {
	return func(value interface{}, _ *T) interface{} { return value }
}

// StandardWrite returns the property value unchanged.
func StandardWrite[T any]() WriteMask[T] {
	return func(value interface{}, _ *T) interface{} { return value }
}

// ReadOnly never writes the field; use it for computed or joined columns.
func ReadOnly[T any]() WriteMask[T] {
	return func(interface{}, *T) interface{} { return Omit }
}

// NullIfZero writes NULL instead of the zero value of the property.
func NullIfZero[T any]() WriteMask[T] {
	return func(value interface{}, _ *T) interface{} {
		if value == nil || reflect.ValueOf(value).IsZero() {
			return nil
		}
		return value
	}
}

// JSONRead decodes a JSON text column into a types.JsonObject. Malformed
// payloads read as an empty object.
func JSONRead[T any]() ReadMask[T] {
	return func(value interface{}, _ *T) interface{} {
		obj, err := types.ParseJsonObject(value)
		if err != nil {
			return types.JsonObject{}
		}
		return obj
	}
}

// JSONWrite encodes an object property as JSON text.
func JSONWrite[T any]() WriteMask[T] {
	return func(value interface{}, _ *T) interface{} {
		obj, err := types.ParseJsonObject(value)
		if err != nil {
			return Omit
		}
		text, err := obj.Value()
		if err != nil {
			return Omit
		}
		return text
	}
}

// UUIDKeyGenerator assigns random UUID strings as primary keys.
func UUIDKeyGenerator() KeyGenerator {
	return func() (interface{}, error) {
		id, err := uuid.NewRandom()
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	}
}

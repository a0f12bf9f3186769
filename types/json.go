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

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JsonObject is a convenience type for JSON text columns mapped to objects.
type JsonObject map[string]interface{}

// Value implements driver.Valuer, encoding the object as JSON text.
func (j JsonObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Text and byte payloads are accepted since
// drivers disagree on how they return TEXT columns.
func (j *JsonObject) Scan(value interface{}) error {
	obj, err := ParseJsonObject(value)
	if err != nil {
		return err
	}
	*j = obj
	return nil
}

// ParseJsonObject decodes a raw column value into a JsonObject. Nil and the
// empty string decode to an empty object.
func ParseJsonObject(value interface{}) (JsonObject, error) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return JsonObject{}, nil
	case JsonObject:
		return v, nil
	case map[string]interface{}:
		return JsonObject(v), nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, fmt.Errorf("cannot decode %T as json object", value)
	}
	if len(raw) == 0 {
		return JsonObject{}, nil
	}
	obj := JsonObject{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("invalid json object: %w", err)
	}
	return obj, nil
}

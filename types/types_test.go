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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequestDefaults(t *testing.T) {
	p := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, 10, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())
	assert.Nil(t, p.GetFilter())
	assert.Empty(t, p.GetOrders())

	f := NewFilter("age > :age", Params{"age": 1})
	p = NewPageRequest(3, 20, f, []string{"id DESC"})
	assert.Equal(t, 40, p.GetOffset())
	assert.Same(t, f, p.GetFilter())
	assert.Equal(t, []string{"id DESC"}, p.GetOrders())
}

func TestPaginationPages(t *testing.T) {
	p := NewDefaultPagination[struct{}](1, 10)
	assert.Equal(t, 0, p.Pages())
	assert.NotNil(t, p.Items)

	p.Total = 21
	assert.Equal(t, 3, p.Pages())
	p.Total = 20
	assert.Equal(t, 2, p.Pages())
	p.PageSize = 0
	assert.Equal(t, 0, p.Pages())
}

func TestFilter(t *testing.T) {
	var nilFilter *Filter
	assert.True(t, nilFilter.IsEmpty())
	assert.True(t, NewFilter("", nil).IsEmpty())

	f := NewFilter("id = :id", nil)
	assert.False(t, f.IsEmpty())
	assert.NotNil(t, f.Params)
}

func TestRowClone(t *testing.T) {
	r := Row{"id": 1}
	c := r.Clone()
	c["id"] = 2
	c["name"] = "x"
	assert.Equal(t, Row{"id": 1}, r)
}

func TestJsonObject(t *testing.T) {
	for _, in := range []interface{}{nil, "", []byte{}} {
		obj, err := ParseJsonObject(in)
		require.NoError(t, err)
		assert.Equal(t, JsonObject{}, obj)
	}

	obj, err := ParseJsonObject([]byte(`{"a":"b"}`))
	require.NoError(t, err)
	assert.Equal(t, JsonObject{"a": "b"}, obj)

	_, err = ParseJsonObject(42)
	assert.Error(t, err)
	_, err = ParseJsonObject("[1,2]")
	assert.Error(t, err)

	var scanned JsonObject
	require.NoError(t, scanned.Scan(`{"n":1}`))
	assert.Equal(t, JsonObject{"n": float64(1)}, scanned)

	v, err := scanned.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, v)

	v, err = JsonObject(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

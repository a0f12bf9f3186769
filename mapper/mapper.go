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
	"fmt"
	"reflect"
	"sort"

	"github.com/uptrace/bun/schema"
)

// ReadMask transforms the raw value of a source column while a row is
// hydrated. instance already carries every directly named column.
type ReadMask[T any] func(value interface{}, instance *T) interface{}

// WriteMask transforms a property value before it is persisted. Returning
// Omit removes the field from the statement.
type WriteMask[T any] func(value interface{}, instance *T) interface{}

// KeyGenerator produces the primary key of a record about to be inserted.
// A nil key means the database assigns it.
type KeyGenerator func() (interface{}, error)

// FieldMapping maps a record property to its source column and the masks
// applied on read and write.
type FieldMapping[T any] struct {
	Property string
	Column   string
	Read     ReadMask[T]
	Write    WriteMask[T]
}

// Mapper describes how the records of type T map onto a table. It is
// configured once with the chaining methods below and must not be changed
// after it has been handed to a repository.
type Mapper[T any] struct {
	table       string
	primaryKeys []string
	factory     func() *T
	aliases     map[string]string
	fields      []FieldMapping[T]
	keyGen      KeyGenerator
	prepare     func(map[string]interface{}) map[string]interface{}
}

// New creates a mapper for table with a single primary key column.
func New[T any](table string, primaryKey string) *Mapper[T] {
	return &Mapper[T]{
		table:       table,
		primaryKeys: []string{primaryKey},
		aliases:     map[string]string{},
	}
}

// FromModel creates a mapper from the bun metadata of T: the table name
// and the columns tagged as `pk`.
func FromModel[T any](dialect schema.Dialect) (*Mapper[T], error) {
	t := dialect.Tables().Get(reflect.TypeFor[T]())
	if len(t.PKs) == 0 {
		return nil, fmt.Errorf("mapper: model %s has no primary key", t.TypeName)
	}
	m := New[T](t.Name, t.PKs[0].Name)
	for _, pk := range t.PKs[1:] {
		m.primaryKeys = append(m.primaryKeys, pk.Name)
	}
	return m, nil
}

// WithPrimaryKeys replaces the key columns, for tables with a composite key.
func (m *Mapper[T]) WithPrimaryKeys(columns ...string) *Mapper[T] {
	if len(columns) > 0 {
		m.primaryKeys = append([]string(nil), columns...)
	}
	return m
}

// WithFactory sets the constructor used for every hydrated record.
func (m *Mapper[T]) WithFactory(factory func() *T) *Mapper[T] {
	m.factory = factory
	return m
}

// WithKeyGenerator sets the key generator used on insert.
func (m *Mapper[T]) WithKeyGenerator(gen KeyGenerator) *Mapper[T] {
	m.keyGen = gen
	return m
}

// WithPrepareField sets a table specific coercion run on the flattened
// record before write masks are applied.
func (m *Mapper[T]) WithPrepareField(fn func(map[string]interface{}) map[string]interface{}) *Mapper[T] {
	m.prepare = fn
	return m
}

// AddFieldMapping declares that property is stored in column. Nil masks
// default to the identity.
func (m *Mapper[T]) AddFieldMapping(property, column string, read ReadMask[T], write WriteMask[T]) *Mapper[T] {
	if read == nil {
		read = StandardRead[T]()
	}
	if write == nil {
		write = StandardWrite[T]()
	}
	m.fields = append(m.fields, FieldMapping[T]{
		Property: property,
		Column:   column,
		Read:     read,
		Write:    write,
	})
	return m
}

// AddFieldAlias declares that property is read from the result column
// alias when the query returns it.
func (m *Mapper[T]) AddFieldAlias(property, alias string) *Mapper[T] {
	m.aliases[property] = alias
	return m
}

// Table returns the mapped table name.
func (m *Mapper[T]) Table() string { return m.table }

// PrimaryKey returns the first primary key column.
func (m *Mapper[T]) PrimaryKey() string { return m.primaryKeys[0] }

// PrimaryKeys returns every primary key column.
func (m *Mapper[T]) PrimaryKeys() []string {
	return append([]string(nil), m.primaryKeys...)
}

// Entity returns a new, empty record.
func (m *Mapper[T]) Entity() *T {
	if m.factory != nil {
		return m.factory()
	}
	return new(T)
}

// FieldAliases returns a copy of the property -> alias table.
func (m *Mapper[T]) FieldAliases() map[string]string {
	out := make(map[string]string, len(m.aliases))
	for k, v := range m.aliases {
		out[k] = v
	}
	return out
}

// Fields returns the field mappings in declaration order.
func (m *Mapper[T]) Fields() []FieldMapping[T] {
	return append([]FieldMapping[T](nil), m.fields...)
}

// GenerateKey runs the key generator, if any.
func (m *Mapper[T]) GenerateKey() (interface{}, error) {
	if m.keyGen == nil {
		return nil, nil
	}
	return m.keyGen()
}

// PrepareField applies the table specific coercion to a flattened record.
func (m *Mapper[T]) PrepareField(values map[string]interface{}) map[string]interface{} {
	if m.prepare == nil {
		return values
	}
	return m.prepare(values)
}

func (m *Mapper[T]) sortedAliases() []string {
	props := make([]string, 0, len(m.aliases))
	for p := range m.aliases {
		props = append(props, p)
	}
	sort.Strings(props)
	return props
}

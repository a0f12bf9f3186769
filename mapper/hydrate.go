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
	"github.com/tomoncle/microrm/binder"
	"github.com/tomoncle/microrm/types"
)

// Hydrator turns one result row into a record. *Mapper[T] implements it, so
// mappers of different record types can hydrate the same joined row.
type Hydrator interface {
	Table() string
	Hydrate(b *binder.Binder, row types.Row) (interface{}, error)
}

var _ Hydrator = (*Mapper[struct{}])(nil)

// Hydrate implements Hydrator.
func (m *Mapper[T]) Hydrate(b *binder.Binder, row types.Row) (interface{}, error) {
	return m.HydrateEntity(b, row)
}

// HydrateEntity builds a record from row in three stages: rawBind copies
// every directly named column, deriveMaskedFields runs the read masks against
// the bound record, commitBind stores the masked values.
func (m *Mapper[T]) HydrateEntity(b *binder.Binder, row types.Row) (*T, error) {
	instance := m.Entity()
	data := m.applyAliases(row)

	if err := b.Bind(data, instance); err != nil {
		return nil, err
	}
	if len(m.fields) == 0 {
		return instance, nil
	}

	derived := m.deriveMaskedFields(data, instance)
	if err := b.Bind(derived, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// applyAliases returns a copy of row where every aliased column present in
// the result overrides the property it stands for.
func (m *Mapper[T]) applyAliases(row types.Row) types.Row {
	data := row.Clone()
	for _, property := range m.sortedAliases() {
		if v, ok := row[m.aliases[property]]; ok {
			data[property] = v
		}
	}
	return data
}

// deriveMaskedFields computes one value per field mapping. A source column
// that is missing from the row or NULL reads as "".
func (m *Mapper[T]) deriveMaskedFields(data types.Row, instance *T) map[string]interface{} {
	out := make(map[string]interface{}, len(m.fields))
	for _, f := range m.fields {
		value := data[f.Column]
		if value == nil {
			value = ""
		}
		out[f.Property] = f.Read(value, instance)
	}
	return out
}

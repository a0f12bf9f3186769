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
	"sort"
	"sync"
)

var defaultRegistry = newRegistry()

// registry keeps one mapper per record type so that services can be
// created from the type alone.
type registry struct {
	mappers map[reflect.Type]interface{}
	mutex   sync.RWMutex
}

func newRegistry() *registry {
	return &registry{mappers: make(map[reflect.Type]interface{})}
}

func (r *registry) register(typ reflect.Type, m interface{}) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.mappers[typ] = m
}

func (r *registry) lookup(typ reflect.Type) (interface{}, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	m, ok := r.mappers[typ]
	return m, ok
}

// Register makes m the default mapper of T, replacing any earlier one.
func Register[T any](m *Mapper[T]) {
	defaultRegistry.register(reflect.TypeFor[T](), m)
}

// Lookup returns the mapper registered for T.
func Lookup[T any]() (*Mapper[T], bool) {
	m, ok := defaultRegistry.lookup(reflect.TypeFor[T]())
	if !ok {
		return nil, false
	}
	return m.(*Mapper[T]), true
}

// RegisteredTables returns the table names of all registered mappers,
// sorted.
func RegisteredTables() []string {
	defaultRegistry.mutex.RLock()
	defer defaultRegistry.mutex.RUnlock()

	tables := make([]string, 0, len(defaultRegistry.mappers))
	for _, m := range defaultRegistry.mappers {
		if h, ok := m.(Hydrator); ok {
			tables = append(tables, h.Table())
		}
	}
	sort.Strings(tables)
	return tables
}

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

package repository

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sort"

	"github.com/tomoncle/microrm/mapper"
	"github.com/tomoncle/microrm/query"
)

// Save does not lock: the existence check and the write are separate
// statements. Run it through RunInTx to bracket both.
func (r *baseRepositoryImpl[T]) Save(ctx context.Context, instance *T) (*T, error) {
	values, err := r.outgoing(instance)
	if err != nil {
		return nil, err
	}

	isInsert, err := r.isInsert(ctx, values)
	if err != nil {
		return nil, err
	}

	keys := r.mapper.PrimaryKeys()
	fields := sortedKeys(values)
	if !isInsert {
		fields = slices.DeleteFunc(fields, func(f string) bool { return slices.Contains(keys, f) })
	}
	updatable := query.NewUpdatable(r.mapper.Table()).Fields(fields...)

	hook := r.hooks.BeforeUpdate
	if isInsert {
		hook = r.hooks.BeforeInsert
	}
	values, err = hook(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBeforeHookInvalid, err)
	}
	if len(values) == 0 {
		return nil, ErrBeforeHookInvalid
	}

	if isInsert {
		err = r.insert(ctx, updatable, values)
	} else {
		err = r.update(ctx, updatable, values)
	}
	if err != nil {
		return nil, err
	}

	if err := r.binder.Bind(values, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// outgoing flattens instance into the column map to persist: every
// property, the table coercion, then the write mask of each field mapping.
func (r *baseRepositoryImpl[T]) outgoing(instance *T) (map[string]interface{}, error) {
	values, err := r.binder.ToMap(instance, true)
	if err != nil {
		return nil, err
	}
	values = r.mapper.PrepareField(values)

	for _, f := range r.mapper.Fields() {
		value, ok := values[f.Property]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrFieldMappingInvalid, r.mapper.Table(), f.Property)
		}
		delete(values, f.Property)
		masked := f.Write(value, instance)
		if mapper.IsOmit(masked) {
			continue
		}
		values[f.Column] = masked
	}
	return values, nil
}

func (r *baseRepositoryImpl[T]) isInsert(ctx context.Context, values map[string]interface{}) (bool, error) {
	keys := r.mapper.PrimaryKeys()
	pk := make([]interface{}, len(keys))
	for i, col := range keys {
		if isEmpty(values[col]) {
			return true, nil
		}
		pk[i] = values[col]
	}
	existing, err := r.Get(ctx, pk)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

func (r *baseRepositoryImpl[T]) insert(ctx context.Context, updatable *query.Updatable, values map[string]interface{}) error {
	key, err := r.mapper.GenerateKey()
	if err != nil {
		return err
	}
	pk := r.mapper.PrimaryKey()

	if key != nil {
		values[pk] = key
		updatable.AddField(pk)
		stmt, err := updatable.BuildInsert(values, r.driver.DB())
		if err != nil {
			return err
		}
		r.trace("insert", stmt)
		if _, err := r.driver.Execute(ctx, stmt); err != nil {
			r.logWriteError("insert", err)
			return err
		}
		return nil
	}

	for _, col := range r.mapper.PrimaryKeys() {
		if isEmpty(values[col]) {
			delete(values, col)
		}
	}
	id, err := r.driver.Helper().ExecuteAndGetInsertedID(ctx, r.driver, updatable, values, pk)
	if err != nil {
		r.logWriteError("insert", err)
		return err
	}
	values[pk] = id
	return nil
}

func (r *baseRepositoryImpl[T]) update(ctx context.Context, updatable *query.Updatable, values map[string]interface{}) error {
	filter, err := r.keyFilter(r.keyValue(values), "_id")
	if err != nil {
		return err
	}
	stmt, err := updatable.WhereFilter(filter).BuildUpdate(values, r.driver.DB())
	if err != nil {
		return err
	}
	r.trace("update", stmt)
	if _, err := r.driver.Execute(ctx, stmt); err != nil {
		r.logWriteError("update", err)
		return err
	}
	return nil
}

func (r *baseRepositoryImpl[T]) keyValue(values map[string]interface{}) interface{} {
	keys := r.mapper.PrimaryKeys()
	if len(keys) == 1 {
		return values[keys[0]]
	}
	pk := make([]interface{}, len(keys))
	for i, col := range keys {
		pk[i] = values[col]
	}
	return pk
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return rv.IsNil() || rv.Elem().IsZero()
	}
	return rv.IsZero()
}

func sortedKeys(values map[string]interface{}) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

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

import "errors"

var (
	// ErrBeforeHookInvalid is returned when a before-insert or before-update
	// hook fails or returns an empty map. Nothing is written.
	ErrBeforeHookInvalid = errors.New("repository: invalid before hook result")

	// ErrFieldMappingInvalid is returned when a field mapping names a
	// property the record does not have.
	ErrFieldMappingInvalid = errors.New("repository: field mapping names an unknown property")

	// ErrPrimaryKeyInvalid is returned when a composite key value does not
	// match the key columns.
	ErrPrimaryKeyInvalid = errors.New("repository: primary key value does not match the key columns")
)

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel returned by Read and ModifiedTime when a name
// has no stored record. Absence is a normal outcome, not a medium failure.
var ErrNotFound = errors.New("config record not found")

// StorageError is a medium failure: missing directory or table, permission
// denied, failed query, failed archive operation. It always names the
// affected resource.
type StorageError struct {
	Op   string // operation, e.g. "write config record"
	Name string // affected record name, specifier, or path
	Err  error
}

func (e *StorageError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ReadError reports stored bytes that are present but not a valid encoded
// record. It carries the raw contents for diagnostics.
type ReadError struct {
	Name string
	Raw  []byte
	Err  error
}

func (e *ReadError) Error() string {
	raw := e.Raw
	if len(raw) > 128 {
		raw = raw[:128]
	}
	return fmt.Sprintf("read config record %q: %v (contents: %q)", e.Name, e.Err, raw)
}

func (e *ReadError) Unwrap() error { return e.Err }

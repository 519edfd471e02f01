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
	"strings"
)

// Connections maps connection names to opened database handles. The file
// backend ignores it.
type Connections map[string]Conn

// Open maps a specifier string to the matching backend variant:
//
//	file:<directory>           -> *FileStorage
//	db:/<connection>/<table>   -> *DatabaseStorage (connection optional)
func Open(specifier string, conns Connections) (Storage, error) {
	switch {
	case strings.HasPrefix(specifier, "file:"):
		dir := strings.TrimPrefix(specifier, "file:")
		if dir == "" {
			return nil, &StorageError{Op: "open storage", Name: specifier, Err: errors.New("empty directory path")}
		}
		return NewFileStorage(dir), nil
	case strings.HasPrefix(specifier, "db:"):
		connection, _, err := ParseDBSpecifier(specifier)
		if err != nil {
			return nil, err
		}
		conn, ok := conns[connection]
		if !ok {
			return nil, &StorageError{Op: "open storage", Name: specifier, Err: fmt.Errorf("unknown database connection %q", connection)}
		}
		return NewDatabaseStorage(specifier, conn)
	default:
		return nil, &StorageError{Op: "open storage", Name: specifier, Err: errors.New("unsupported specifier prefix")}
	}
}

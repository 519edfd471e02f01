/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Record is a named configuration object: a mapping from string keys to
// JSON-compatible values.
type Record map[string]any

// MetaNameKey is injected into every persisted record so that the stored
// representation is self-describing. It is stripped again on read; callers
// never see it.
const MetaNameKey = "_config_name"

// Storage is the contract every backend implements. Semantics are identical
// regardless of medium; see the individual backends for medium-specific
// caveats (ModifiedTime in particular).
type Storage interface {
	// URLPrefix returns the backend's specifier prefix ("file" or "db").
	URLPrefix() string

	// InitializeStorage provisions the medium (directory or table). It is
	// idempotent: a no-op when the medium already exists.
	InitializeStorage(ctx context.Context) error

	// IsInitialized reports whether the medium is ready. It never errors.
	IsInitialized(ctx context.Context) bool

	// Exists reports whether a record is present. Medium failures during
	// the probe are treated as "does not exist", never propagated.
	Exists(ctx context.Context, name string) bool

	// Read returns the decoded record with MetaNameKey stripped. An absent
	// name yields ErrNotFound; present-but-corrupt bytes yield a *ReadError.
	Read(ctx context.Context, name string) (Record, error)

	// ReadMultiple reads each name independently. Absent names are silently
	// omitted from the result; corrupt records still fail the call.
	ReadMultiple(ctx context.Context, names []string) (map[string]Record, error)

	// Write persists the record under name with upsert semantics, fully
	// replacing any prior value. The stored form carries MetaNameKey; the
	// caller's record is not mutated.
	Write(ctx context.Context, name string, record Record) error

	// Delete removes a record. It returns false (and no error) when the
	// name does not exist, and a *StorageError when the medium itself is
	// missing.
	Delete(ctx context.Context, name string) (bool, error)

	// Rename moves a record to a new name, replacing any record already
	// stored under newName.
	Rename(ctx context.Context, name, newName string) error

	// ModifiedTime returns the backend's timestamp for a record, or
	// ErrNotFound. The two backends intentionally disagree on what the
	// timestamp means; see FileStorage.ModifiedTime and
	// DatabaseStorage.ModifiedTime.
	ModifiedTime(ctx context.Context, name string) (time.Time, error)

	// ListAll returns every record name starting with prefix. Ordering is
	// implementation-defined.
	ListAll(ctx context.Context, prefix string) ([]string, error)

	// DeleteAll deletes every record matching prefix, best-effort: it keeps
	// going past individual failures and returns false when any deletion
	// failed.
	DeleteAll(ctx context.Context, prefix string) (bool, error)

	// ExportArchive bundles every record into a tar archive at destination.
	ExportArchive(ctx context.Context, destination string) error

	// ImportArchive loads records from a tar archive produced by
	// ExportArchive, overwriting records of the same name.
	ImportArchive(ctx context.Context, source string) error
}

// ValidateName rejects record names that would escape the backend's
// namespace. Backends themselves do not sanitize names; callers are
// expected to validate upstream, and this helper is what they should use.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("config name is empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("config name %q exceeds 255 characters", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("config name %q contains a path separator", name)
	}
	if name == "." || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("config name %q contains a traversal segment", name)
	}
	return nil
}

// withName returns a copy of record carrying the MetaNameKey entry.
func withName(name string, record Record) Record {
	stored := make(Record, len(record)+1)
	for k, v := range record {
		stored[k] = v
	}
	stored[MetaNameKey] = name
	return stored
}

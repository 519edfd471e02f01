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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"confstore/internal/codec"
	applog "confstore/internal/log"
)

// FileExtension is appended to the record name to form its filename.
const FileExtension = ".json"

// FileStorage persists each record as <directory>/<name>.json.
//
// The name-to-path mapping is a direct concatenation: names are not
// sanitized here. Callers must validate names upstream (ValidateName).
type FileStorage struct {
	dir string
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage returns a file backend rooted at dir. The directory is not
// created until InitializeStorage.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Directory returns the backend's root directory.
func (s *FileStorage) Directory() string { return s.dir }

func (s *FileStorage) URLPrefix() string { return "file" }

func (s *FileStorage) path(name string) string {
	return filepath.Join(s.dir, name+FileExtension)
}

// InitializeStorage creates the directory (with parents) and verifies it is
// writable. Idempotent.
func (s *FileStorage) InitializeStorage(ctx context.Context) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "initialize").With(
		slog.String("dir", s.dir),
	)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		l.Error("create storage directory failed", slog.Any("err", err))
		return &StorageError{Op: "initialize file storage", Name: s.dir, Err: err}
	}
	// Probe writability; MkdirAll succeeds on an existing read-only dir.
	probe := filepath.Join(s.dir, ".confstore-probe-"+uuid.NewString())
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		l.Error("storage directory not writable", slog.Any("err", err))
		return &StorageError{Op: "initialize file storage", Name: s.dir, Err: fmt.Errorf("directory not writable: %w", err)}
	}
	_ = os.Remove(probe)
	return nil
}

func (s *FileStorage) IsInitialized(ctx context.Context) bool {
	fi, err := os.Stat(s.dir)
	return err == nil && fi.IsDir()
}

func (s *FileStorage) Exists(ctx context.Context, name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *FileStorage) Read(ctx context.Context, name string) (Record, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "read config record", Name: name, Err: err}
	}
	record, err := codec.Decode(data)
	if err != nil {
		return nil, &ReadError{Name: name, Raw: data, Err: err}
	}
	delete(record, MetaNameKey)
	return record, nil
}

func (s *FileStorage) ReadMultiple(ctx context.Context, names []string) (map[string]Record, error) {
	return readMultiple(ctx, s, names)
}

// Write encodes the record (with MetaNameKey injected) and replaces the
// target file through a temp-file-and-rename sequence so that readers never
// observe a partially written document.
func (s *FileStorage) Write(ctx context.Context, name string, record Record) error {
	data, err := codec.Encode(withName(name, record))
	if err != nil {
		return &StorageError{Op: "write config record", Name: name, Err: err}
	}
	target := s.path(name)
	temp := filepath.Join(s.dir, fmt.Sprintf(".%s.tmp-%s", name+FileExtension, uuid.NewString()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return &StorageError{Op: "write config record", Name: name, Err: err}
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return &StorageError{Op: "write config record", Name: name, Err: err}
	}
	return nil
}

func (s *FileStorage) Delete(ctx context.Context, name string) (bool, error) {
	if !s.IsInitialized(ctx) {
		return false, &StorageError{Op: "delete config record", Name: name, Err: fmt.Errorf("storage directory %s does not exist", s.dir)}
	}
	path := s.path(name)
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, &StorageError{Op: "delete config record", Name: name, Err: err}
	}
	return true, nil
}

// Rename relies on the medium's native rename, which replaces newName
// atomically on POSIX filesystems.
func (s *FileStorage) Rename(ctx context.Context, name, newName string) error {
	if err := os.Rename(s.path(name), s.path(newName)); err != nil {
		return &StorageError{Op: "rename config record", Name: name, Err: err}
	}
	return nil
}

// ModifiedTime returns the file's last modification time, i.e. the time of
// the most recent Write. This deliberately differs from the database
// backend, which reports first-insert time.
func (s *FileStorage) ModifiedTime(ctx context.Context, name string) (time.Time, error) {
	fi, err := os.Stat(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, &StorageError{Op: "stat config record", Name: name, Err: err}
	}
	return fi.ModTime(), nil
}

func (s *FileStorage) ListAll(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &StorageError{Op: "list config records", Name: s.dir, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		base := e.Name()
		if !e.Type().IsRegular() || !strings.HasSuffix(base, FileExtension) || strings.HasPrefix(base, ".") {
			continue
		}
		name := strings.TrimSuffix(base, FileExtension)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *FileStorage) DeleteAll(ctx context.Context, prefix string) (bool, error) {
	return deleteAll(ctx, s, prefix)
}

// writeFileSync writes data and flushes it to disk before returning.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// readMultiple implements the shared partial-success semantics: absent
// names are skipped, anything else fails the call.
func readMultiple(ctx context.Context, s Storage, names []string) (map[string]Record, error) {
	records := make(map[string]Record, len(names))
	for _, name := range names {
		record, err := s.Read(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		records[name] = record
	}
	return records, nil
}

// deleteAll implements the shared best-effort batch delete: it keeps going
// past individual failures and reports aggregate success.
func deleteAll(ctx context.Context, s Storage, prefix string) (bool, error) {
	names, err := s.ListAll(ctx, prefix)
	if err != nil {
		return false, err
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "delete_all")
	ok := true
	for _, name := range names {
		deleted, err := s.Delete(ctx, name)
		if err != nil {
			l.Warn("delete failed", slog.String("name", name), slog.Any("err", err))
			ok = false
			continue
		}
		if !deleted {
			ok = false
		}
	}
	return ok, nil
}

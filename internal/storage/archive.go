/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"confstore/internal/codec"
	applog "confstore/internal/log"
)

// An archive is a flat tar of <name>.json entries, each holding the same
// encoded form the file backend stores on disk.

// ExportArchive bundles every record file into a tar archive at destination.
func (s *FileStorage) ExportArchive(ctx context.Context, destination string) error {
	names, err := s.ListAll(ctx, "")
	if err != nil {
		return err
	}
	if err := writeTarArchive(destination, s.dir, names); err != nil {
		return &StorageError{Op: "export config archive", Name: destination, Err: err}
	}
	return nil
}

// ImportArchive extracts an archive's entries into the storage directory,
// overwriting records of the same name.
func (s *FileStorage) ImportArchive(ctx context.Context, source string) error {
	err := readTarArchive(source, func(name string, data []byte) error {
		return os.WriteFile(s.path(name), data, 0o644)
	})
	if err != nil {
		l := applog.WithOperation(applog.WithComponent("storage"), "import_archive")
		l.Error("archive import failed", slog.String("source", source), slog.Any("err", err))
		return &StorageError{Op: "import config archive", Name: source, Err: err}
	}
	return nil
}

// ExportArchive stages every row into a temporary directory as
// <name>.json, bundles the staged files, and removes the staging directory
// on every exit path, including failures.
func (s *DatabaseStorage) ExportArchive(ctx context.Context, destination string) error {
	names, err := s.ListAll(ctx, "")
	if err != nil {
		return err
	}
	staging, err := os.MkdirTemp("", "confstore-export-")
	if err != nil {
		return &StorageError{Op: "export config archive", Name: destination, Err: err}
	}
	defer func() { _ = os.RemoveAll(staging) }()

	for _, name := range names {
		// Row names join the staging path directly. Other clients can write
		// arbitrary names to the table, so reject unsafe ones here the same
		// way import rejects unsafe archive entries.
		if err := ValidateName(name); err != nil {
			return &StorageError{Op: "export config archive", Name: name, Err: err}
		}
		var data []byte
		if err := s.db.QueryRowContext(ctx, s.rebind(selectDataSQL), name).Scan(&data); err != nil {
			return &StorageError{Op: "export config archive", Name: name, Err: err}
		}
		if err := os.WriteFile(filepath.Join(staging, name+FileExtension), data, 0o644); err != nil {
			return &StorageError{Op: "export config archive", Name: name, Err: err}
		}
	}
	if err := writeTarArchive(destination, staging, names); err != nil {
		return &StorageError{Op: "export config archive", Name: destination, Err: err}
	}
	return nil
}

// ImportArchive decodes each archive entry and writes it as a row. This is
// a real table import, not the file backend's directory extraction.
func (s *DatabaseStorage) ImportArchive(ctx context.Context, source string) error {
	err := readTarArchive(source, func(name string, data []byte) error {
		record, err := codec.Decode(data)
		if err != nil {
			return fmt.Errorf("entry %s: %w", name, err)
		}
		delete(record, MetaNameKey)
		return s.Write(ctx, name, record)
	})
	if err != nil {
		l := applog.WithOperation(applog.WithComponent("storage"), "import_archive")
		l.Error("archive import failed", slog.String("source", source), slog.Any("err", err))
		return &StorageError{Op: "import config archive", Name: source, Err: err}
	}
	return nil
}

// writeTarArchive creates a tar at destination containing
// <dir>/<name>.json for every listed name, as flat entries.
func writeTarArchive(destination, dir string, names []string) (err error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("ensure destination dir: %w", err)
	}
	f, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	tw := tar.NewWriter(f)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name+FileExtension))
		if err != nil {
			return fmt.Errorf("collect %s: %w", name, err)
		}
		hdr := &tar.Header{
			Name:    name + FileExtension,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("archive header %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("archive entry %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// readTarArchive iterates the archive's regular <name>.json entries. The
// format is flat, so entries carrying path separators or traversal
// segments are rejected rather than extracted.
func readTarArchive(source string, fn func(name string, data []byte) error) (err error) {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		entry := hdr.Name
		if !strings.HasSuffix(entry, FileExtension) {
			continue
		}
		name := strings.TrimSuffix(entry, FileExtension)
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("unsafe archive entry %q: %w", entry, err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return fmt.Errorf("read entry %s: %w", entry, err)
		}
		if err := fn(name, data); err != nil {
			return err
		}
	}
}

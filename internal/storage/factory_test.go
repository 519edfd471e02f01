package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenFileSpecifier(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := Open("file:"+dir, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	fs, ok := s.(*FileStorage)
	if !ok {
		t.Fatalf("expected *FileStorage, got %T", s)
	}
	if fs.URLPrefix() != "file" || fs.Directory() != dir {
		t.Fatalf("unexpected backend: prefix=%q dir=%q", fs.URLPrefix(), fs.Directory())
	}
}

func TestOpenDBSpecifier(t *testing.T) {
	conns := Connections{
		DefaultConnection: {DB: openTestDB(t), Dialect: DialectSQLite},
		"reporting":       {DB: openTestDB(t), Dialect: DialectSQLite},
	}
	s, err := Open("db:config", conns)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	ds, ok := s.(*DatabaseStorage)
	if !ok {
		t.Fatalf("expected *DatabaseStorage, got %T", s)
	}
	if ds.URLPrefix() != "db" || ds.Connection() != DefaultConnection || ds.Table() != "config" {
		t.Fatalf("unexpected backend: %q %q %q", ds.URLPrefix(), ds.Connection(), ds.Table())
	}

	s, err = Open("db:/reporting/audit", conns)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	ds = s.(*DatabaseStorage)
	if ds.Connection() != "reporting" || ds.Table() != "audit" {
		t.Fatalf("unexpected backend: %q %q", ds.Connection(), ds.Table())
	}
}

func TestOpenRejectsBadSpecifiers(t *testing.T) {
	conns := Connections{DefaultConnection: {DB: openTestDB(t), Dialect: DialectSQLite}}
	for _, spec := range []string{
		"file:",
		"db:",
		"db:bad-table",
		"db:/unknown_conn/config", // connection not in the registry
		"s3:bucket/key",
		"config",
	} {
		_, err := Open(spec, conns)
		var se *StorageError
		if !errors.As(err, &se) {
			t.Fatalf("Open(%q): expected *StorageError, got %v", spec, err)
		}
	}
}

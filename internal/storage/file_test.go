package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"
)

func newFileStore(t *testing.T) *FileStorage {
	t.Helper()
	s := NewFileStorage(filepath.Join(t.TempDir(), "store"))
	if err := s.InitializeStorage(context.Background()); err != nil {
		t.Fatalf("InitializeStorage error: %v", err)
	}
	return s
}

func TestFileInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewFileStorage(filepath.Join(t.TempDir(), "a", "b", "store"))
	if s.IsInitialized(ctx) {
		t.Fatalf("storage reported initialized before provisioning")
	}
	if err := s.InitializeStorage(ctx); err != nil {
		t.Fatalf("first InitializeStorage: %v", err)
	}
	if err := s.InitializeStorage(ctx); err != nil {
		t.Fatalf("second InitializeStorage: %v", err)
	}
	if !s.IsInitialized(ctx) {
		t.Fatalf("storage not initialized after provisioning")
	}
}

func TestFileWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	record := Record{"name": "Test Site", "weight": float64(3)}

	if err := s.Write(ctx, "site.settings", record); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	// Stored form is self-describing: it carries the injected name key.
	raw, err := os.ReadFile(filepath.Join(s.Directory(), "site.settings.json"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !strings.Contains(string(raw), `"_config_name": "site.settings"`) {
		t.Fatalf("stored form missing metadata key: %s", raw)
	}
	if !strings.HasSuffix(string(raw), "\n") {
		t.Fatalf("stored form missing trailing newline")
	}

	// In-memory form is not: the key is stripped on read.
	got, err := s.Read(ctx, "site.settings")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !reflect.DeepEqual(got, record) {
		t.Fatalf("round trip mismatch: got %#v want %#v", got, record)
	}
	if _, ok := record[MetaNameKey]; ok {
		t.Fatalf("Write mutated the caller's record")
	}
}

func TestFileWriteIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	if err := s.Write(ctx, "site.settings", Record{"name": "One", "stale": true}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := s.Write(ctx, "site.settings", Record{"name": "Two"}); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	got, err := s.Read(ctx, "site.settings")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !reflect.DeepEqual(got, Record{"name": "Two"}) {
		t.Fatalf("overwrite not complete: %#v", got)
	}
}

func TestFileWriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	if err := s.Write(ctx, "site.settings", Record{"name": "Test"}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	entries, err := os.ReadDir(s.Directory())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "site.settings.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected directory contents: %v", names)
	}
}

func TestFileReadMissingReturnsNotFound(t *testing.T) {
	s := newFileStore(t)
	_, err := s.Read(context.Background(), "never.written")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileReadCorruptReturnsReadError(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	for label, contents := range map[string]string{"garbage": "not json", "null": "null\n"} {
		path := filepath.Join(s.Directory(), "broken.json")
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("%s: seed corrupt file: %v", label, err)
		}
		_, err := s.Read(ctx, "broken")
		var re *ReadError
		if !errors.As(err, &re) {
			t.Fatalf("%s: expected *ReadError, got %T: %v", label, err, err)
		}
		if re.Name != "broken" || len(re.Raw) == 0 {
			t.Fatalf("%s: ReadError missing diagnostics: %+v", label, re)
		}
	}
}

func TestFileExistsNeverErrors(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	if s.Exists(ctx, "site.settings") {
		t.Fatalf("Exists true before any write")
	}
	if err := s.Write(ctx, "site.settings", Record{"name": "Test"}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !s.Exists(ctx, "site.settings") {
		t.Fatalf("Exists false after write")
	}
	// A missing medium is "does not exist", not an error.
	missing := NewFileStorage(filepath.Join(t.TempDir(), "nope"))
	if missing.Exists(ctx, "anything") {
		t.Fatalf("Exists true on missing directory")
	}
}

func TestFileDelete(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	deleted, err := s.Delete(ctx, "never.written")
	if err != nil || deleted {
		t.Fatalf("delete of absent name: got (%v, %v), want (false, nil)", deleted, err)
	}
	if err := s.Write(ctx, "site.settings", Record{"name": "Test"}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	deleted, err = s.Delete(ctx, "site.settings")
	if err != nil || !deleted {
		t.Fatalf("delete of present name: got (%v, %v), want (true, nil)", deleted, err)
	}
	if _, err := s.Read(ctx, "site.settings"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record still readable after delete: %v", err)
	}

	// Missing directory is a medium failure, distinct from a missing name.
	missing := NewFileStorage(filepath.Join(t.TempDir(), "nope"))
	_, err = missing.Delete(ctx, "anything")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError for missing directory, got %v", err)
	}
}

func TestFileRename(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	record := Record{"name": "Test Site"}
	if err := s.Write(ctx, "old.name", record); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := s.Rename(ctx, "old.name", "new.name"); err != nil {
		t.Fatalf("Rename error: %v", err)
	}
	if s.Exists(ctx, "old.name") {
		t.Fatalf("old name still exists after rename")
	}
	got, err := s.Read(ctx, "new.name")
	if err != nil {
		t.Fatalf("Read after rename: %v", err)
	}
	if !reflect.DeepEqual(got, record) {
		t.Fatalf("renamed record mismatch: %#v", got)
	}

	err = s.Rename(ctx, "never.written", "whatever")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError renaming absent record, got %v", err)
	}
}

func TestFileModifiedTimeTracksLastWrite(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	if _, err := s.ModifiedTime(ctx, "never.written"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Write(ctx, "site.settings", Record{"name": "Test"}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	// Age the file, then overwrite: the reported time must move forward,
	// unlike the database backend's first-insert semantics.
	path := filepath.Join(s.Directory(), "site.settings.json")
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := s.Write(ctx, "site.settings", Record{"name": "Test 2"}); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	ts, err := s.ModifiedTime(ctx, "site.settings")
	if err != nil {
		t.Fatalf("ModifiedTime error: %v", err)
	}
	if !ts.After(old.Add(30 * time.Minute)) {
		t.Fatalf("modified time did not advance on overwrite: %v", ts)
	}
}

func TestFileListAll(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	for _, name := range []string{"site.settings", "site.theme", "system.cron"} {
		if err := s.Write(ctx, name, Record{"name": name}); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
	}
	// Non-record files are not listed, and neither are subdirectories that
	// happen to carry the record suffix.
	if err := os.WriteFile(filepath.Join(s.Directory(), "README.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed stray file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(s.Directory(), "archive.json"), 0o755); err != nil {
		t.Fatalf("seed stray dir: %v", err)
	}

	names, err := s.ListAll(ctx, "")
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	sort.Strings(names)
	want := []string{"site.settings", "site.theme", "system.cron"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("ListAll(\"\"): got %v want %v", names, want)
	}

	names, err = s.ListAll(ctx, "site.")
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	sort.Strings(names)
	if !reflect.DeepEqual(names, []string{"site.settings", "site.theme"}) {
		t.Fatalf("ListAll(\"site.\"): got %v", names)
	}

	missing := NewFileStorage(filepath.Join(t.TempDir(), "nope"))
	var se *StorageError
	if _, err := missing.ListAll(ctx, ""); !errors.As(err, &se) {
		t.Fatalf("expected *StorageError on missing directory, got %v", err)
	}
}

func TestFileReadMultipleOmitsMissing(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	if err := s.Write(ctx, "a", Record{"v": float64(1)}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := s.Write(ctx, "c", Record{"v": float64(3)}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	got, err := s.ReadMultiple(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ReadMultiple error: %v", err)
	}
	if len(got) != 2 || got["a"] == nil || got["c"] == nil {
		t.Fatalf("partial result mismatch: %#v", got)
	}
}

// faultyDelete wraps a file store and fails deletion of one name,
// simulating a medium fault mid-batch.
type faultyDelete struct {
	*FileStorage
	failName string
}

func (f faultyDelete) Delete(ctx context.Context, name string) (bool, error) {
	if name == f.failName {
		return false, &StorageError{Op: "delete config record", Name: name, Err: errors.New("medium fault")}
	}
	return f.FileStorage.Delete(ctx, name)
}

func TestFileDeleteAllContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	for _, name := range []string{"temp.a", "temp.b", "keep.c"} {
		if err := s.Write(ctx, name, Record{"name": name}); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
	}

	ok, err := deleteAll(ctx, faultyDelete{FileStorage: s, failName: "temp.b"}, "temp.")
	if err != nil {
		t.Fatalf("DeleteAll error: %v", err)
	}
	if ok {
		t.Fatalf("DeleteAll reported success despite a failed deletion")
	}
	if s.Exists(ctx, "temp.a") {
		t.Fatalf("other matching records were not deleted")
	}
	if !s.Exists(ctx, "temp.b") {
		t.Fatalf("failed deletion should leave the record behind")
	}
	if !s.Exists(ctx, "keep.c") {
		t.Fatalf("non-matching record was deleted")
	}
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"site.settings", "a", strings.Repeat("x", 255)} {
		if err := ValidateName(name); err != nil {
			t.Fatalf("ValidateName(%q) unexpected error: %v", name, err)
		}
	}
	for _, name := range []string{"", "  ", "a/b", `a\b`, "..", "a..b", strings.Repeat("x", 256)} {
		if err := ValidateName(name); err == nil {
			t.Fatalf("ValidateName(%q) expected error", name)
		}
	}
}

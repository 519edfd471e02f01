package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		" DEBUG ": slog.LevelDebug,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CONFSTORE_LOG_LEVEL", "debug")
	t.Setenv("CONFSTORE_LOG_FORMAT", "json")
	t.Setenv("CONFSTORE_LOG_SOURCE", "true")
	opts := FromEnv()
	if opts.Level != "debug" || opts.Format != "json" || !opts.AddSource {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestInitWithFileWritesRecords(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "confstore.log")
	Init(Options{Level: "info", Format: "text", File: file})
	L().Info("hello", slog.String("k", "v"))
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("log file is empty")
	}
}

func TestWithComponentDoesNotPanic(t *testing.T) {
	Init(Options{Level: "error"})
	l := WithOperation(WithComponent("storage"), "test")
	l.Info("suppressed")
}

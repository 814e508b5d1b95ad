package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "DEBUG",
		"info":    "INFO",
		"WARN":    "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
		" Debug ": "DEBUG",
	}
	for input, want := range cases {
		if got := parseLevel(input).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tablotogo.log")
	logger, err := New(Options{Level: "info", Format: "console", Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("cycle complete", Int("queued", 3))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "cycle complete") {
		t.Errorf("log file missing message: %s", data)
	}
	if !strings.Contains(string(data), `"queued":3`) {
		t.Errorf("log file missing attr: %s", data)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
	if logger.Enabled(context.Background(), 12) {
		t.Error("nop logger should never be enabled")
	}
}

func TestComponentLoggerNilSafe(t *testing.T) {
	if NewComponentLogger(nil, "resolver") == nil {
		t.Fatal("NewComponentLogger(nil) returned nil")
	}
}

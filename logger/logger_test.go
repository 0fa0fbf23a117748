package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	if err := InitLogger(path); err != nil {
		t.Fatalf("InitLogger() error = %v", err)
	}
	Log.Infow("hello from test")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file does not contain message, got %q", string(data))
	}
	if !strings.Contains(string(data), "INFO") {
		t.Errorf("expected capital level in output, got %q", string(data))
	}
}

func TestInitLoggerBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "test.log")
	if err := InitLogger(path); err == nil {
		t.Error("expected error for unwritable log path")
	}
}

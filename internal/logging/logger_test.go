package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in directory", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLogger(dir, LevelDebug, io.Discard)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		logPath := filepath.Join(dir, LogFileName)
		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("writes JSON to stderr when dir is empty", func(t *testing.T) {
		var stderr bytes.Buffer
		logger, err := NewLogger("", LevelInfo, &stderr)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if logger.sink.file != nil {
			t.Error("expected no log file when dir is empty")
		}
		logger.Info("hello")
		if entries := readLines(t, &stderr); len(entries) != 1 || entries[0]["msg"] != "hello" {
			t.Errorf("unexpected stderr output: %q", stderr.String())
		}
	})
}

func readLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelWarn)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := readLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 log lines at WARN, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn" || entries[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v, %v", entries[0]["msg"], entries[1]["msg"])
	}
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelDebug).
		WithRun("run-1").
		WithCommand("process").
		WithNotebook("nb-1").
		WithTask("task-1")

	logger.Info("generation started", "attempt", 1)

	entries := readLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	want := map[string]string{
		"run_id":      "run-1",
		"command":     "process",
		"notebook_id": "nb-1",
		"task_id":     "task-1",
	}
	for k, v := range want {
		if entries[0][k] != v {
			t.Errorf("%s = %v, want %q", k, entries[0][k], v)
		}
	}
	if entries[0]["attempt"] != float64(1) {
		t.Errorf("attempt = %v, want 1", entries[0]["attempt"])
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriterLogger(&buf, LevelInfo)

	if base.With() != base {
		t.Error("With() without args should return the same logger")
	}

	child := base.With("source", "notes.pdf", 42, "ignored-non-string-key")
	child.Info("uploaded")
	base.Info("parent")

	entries := readLines(t, &buf)
	if entries[0]["source"] != "notes.pdf" {
		t.Errorf("child entry missing source attr: %v", entries[0])
	}
	if _, ok := entries[1]["source"]; ok {
		t.Error("parent logger should not inherit child attributes")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info("discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on NopLogger returned %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := slogLevel(tt.in); got != tt.want {
				t.Errorf("slogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestChildSharesFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, io.Discard)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.WithRun("run-9").Info("from child")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"run_id":"run-9"`) {
		t.Errorf("log file missing child entry: %s", content)
	}
}

func TestClose(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo, io.Discard)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("before close")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "before close") {
		t.Errorf("log file missing entry: %s", content)
	}
}

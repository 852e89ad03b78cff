package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Log levels accepted in logging.level, case-insensitive.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the file created inside a configured log directory.
const LogFileName = "decksidecar.log"

// sink owns the log file shared by a logger and all of its children.
type sink struct {
	mu   sync.Mutex
	file *os.File
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	s.file = nil
	return nil
}

// Logger is a structured diagnostic logger. Children created with the With
// methods share their parent's output. It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	sink   *sink
}

// NewLogger creates the logger for one invocation. With a non-empty dir,
// JSON lines are appended to {dir}/decksidecar.log; otherwise they go to
// stderr, as text when stderr is a terminal.
func NewLogger(dir, level string, stderr io.Writer) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}

	if dir == "" {
		var handler slog.Handler = slog.NewJSONHandler(stderr, opts)
		if f, ok := stderr.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			handler = slog.NewTextHandler(stderr, opts)
		}
		return &Logger{logger: slog.New(handler), sink: &sink{}}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		logger: slog.New(slog.NewJSONHandler(file, opts)),
		sink:   &sink{file: file},
	}, nil
}

// NewWriterLogger creates a JSON logger over w.
func NewWriterLogger(w io.Writer, level string) *Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	return &Logger{logger: slog.New(slog.NewJSONHandler(w, opts)), sink: &sink{}}
}

// NopLogger returns a Logger that discards everything.
func NopLogger() *Logger {
	return &Logger{logger: slog.New(slog.DiscardHandler), sink: &sink{}}
}

// slogLevel maps a level name onto slog. Unknown names mean INFO.
func slogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRun tags entries with the invocation's run ID.
func (l *Logger) WithRun(runID string) *Logger {
	return l.With("run_id", runID)
}

// WithCommand tags entries with the sidecar command name.
func (l *Logger) WithCommand(command string) *Logger {
	return l.With("command", command)
}

// WithNotebook tags entries with the remote notebook ID.
func (l *Logger) WithNotebook(notebookID string) *Logger {
	return l.With("notebook_id", notebookID)
}

// WithTask tags entries with the generation task ID.
func (l *Logger) WithTask(taskID string) *Logger {
	return l.With("task_id", taskID)
}

// With returns a child logger carrying alternating key-value pairs.
// Pairs whose key is not a string are dropped.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	attrs := make([]any, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			attrs = append(attrs, slog.Any(key, args[i+1]))
		}
	}
	return &Logger{logger: l.logger.With(attrs...), sink: l.sink}
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Close flushes and closes the log file, if any. It is safe to call twice.
func (l *Logger) Close() error {
	return l.sink.close()
}

// Package logging provides structured diagnostic logging for the sidecar.
//
// This package wraps Go's log/slog. Stdout belongs to the event protocol, so
// diagnostics never go there: they are written to stderr, or appended to
// {dir}/decksidecar.log when a log directory is configured.
//
// # Handler Selection
//
// File output is always JSON. Stderr output is JSON unless stderr is a
// terminal, in which case a text handler is used so interactive runs stay
// readable.
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	runLogger := logger.WithRun(runID).WithCommand("process")
//	nbLogger := runLogger.WithNotebook("nb-123")
//	nbLogger.Info("source uploaded", "source_id", "src-1")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"source uploaded","run_id":"...","command":"process","notebook_id":"nb-123","source_id":"src-1"}
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output.
package logging

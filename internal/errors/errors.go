// Package errors provides centralized error definitions and error handling utilities
// for the sidecar. It defines the failure taxonomy of a job, semantic error types,
// error constructors with context wrapping, and classification helpers that map
// any error onto an event category and a process exit code.
//
// # Error Types
//
// Job errors carry the failure category, the remote operation that failed, and
// the identifiers known at the time:
//   - JobError: any fatal failure of a process/find-notebook/check-status/download run
//
// Semantic errors represent common error conditions:
//   - ValidationError: malformed or missing command arguments
//   - TimeoutError: a wait budget elapsed before a terminal state was observed
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewJobError(errors.CategoryRemoteOperation, "create_notebook", "failed to create notebook", cause)
//	err = err.WithNotebookID("nb-123")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrGenerationRejected) { ... }
//
//	var jobErr *errors.JobError
//	if errors.As(err, &jobErr) { ... }
//
//	category := errors.CategoryOf(err)
//	os.Exit(errors.ExitCode(err))
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Category names one class of the failure taxonomy. The string value is what
// appears in the "category" field of error events.
type Category string

const (
	CategoryValidation         Category = "validation"
	CategoryNotAuthenticated   Category = "not_authenticated"
	CategoryMissingInput       Category = "missing_input"
	CategoryRemoteOperation    Category = "remote_operation"
	CategoryReadinessTimeout   Category = "readiness_timeout"
	CategoryGenerationTimeout  Category = "generation_timeout"
	CategoryGenerationRejected Category = "generation_rejected"
	CategoryTimeout            Category = "timeout"
	CategoryCanceled           Category = "canceled"
	CategoryInternal           Category = "internal"
)

// Process exit codes. Every terminal error event is followed by exactly one of
// these.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitUsage              = 2
	ExitNotAuthenticated   = 3
	ExitMissingInput       = 4
	ExitTimeout            = 5
	ExitGenerationRejected = 6
	ExitCanceled           = 130
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Input-related sentinel errors
var (
	// ErrValidation indicates malformed or missing command arguments.
	ErrValidation = New("invalid arguments")
	// ErrMissingInput indicates that the primary input file does not exist.
	ErrMissingInput = New("input file not found")
)

// Credential-related sentinel errors
var (
	// ErrNotAuthenticated indicates that saved credentials are absent or invalid.
	ErrNotAuthenticated = New("not authenticated")
)

// Remote workflow sentinel errors
var (
	// ErrRemoteOperation indicates a failure surfaced by the workspace client.
	ErrRemoteOperation = New("remote operation failed")
	// ErrReadinessTimeout indicates a source never became ready within its budget.
	ErrReadinessTimeout = New("source readiness timed out")
	// ErrGenerationTimeout indicates generation never reached a terminal status within its budget.
	ErrGenerationTimeout = New("slide generation timed out")
	// ErrGenerationRejected indicates that generation returned no usable task identifier.
	ErrGenerationRejected = New("slide generation rejected")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// categorySentinels maps each job category onto the sentinel it matches under errors.Is.
var categorySentinels = map[Category]error{
	CategoryValidation:         ErrValidation,
	CategoryNotAuthenticated:   ErrNotAuthenticated,
	CategoryMissingInput:       ErrMissingInput,
	CategoryRemoteOperation:    ErrRemoteOperation,
	CategoryReadinessTimeout:   ErrReadinessTimeout,
	CategoryGenerationTimeout:  ErrGenerationTimeout,
	CategoryGenerationRejected: ErrGenerationRejected,
	CategoryTimeout:            ErrTimeout,
	CategoryCanceled:           ErrCanceled,
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message string
	cause   error
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Message returns the human-readable message without the cause chain.
func (e *baseError) Message() string {
	return e.message
}

// -----------------------------------------------------------------------------
// Job Errors
// -----------------------------------------------------------------------------

// JobError represents a fatal failure of one sidecar command.
//
// Example:
//
//	err := errors.NewJobError(errors.CategoryRemoteOperation, "upload_source", "failed to upload notes.pdf", cause)
//	err = err.WithNotebookID("nb-1")
//	fmt.Println(err) // "remote_operation [op=upload_source, notebook=nb-1]: failed to upload notes.pdf: <cause>"
type JobError struct {
	baseError
	Category   Category
	Op         string
	NotebookID string
	TaskID     string
}

// NewJobError creates a new JobError.
func NewJobError(category Category, op, message string, cause error) *JobError {
	return &JobError{
		baseError: baseError{
			message: message,
			cause:   cause,
		},
		Category: category,
		Op:       op,
	}
}

// WithNotebookID adds a notebook ID to the error context.
func (e *JobError) WithNotebookID(id string) *JobError {
	e.NotebookID = id
	return e
}

// WithTaskID adds a generation task ID to the error context.
func (e *JobError) WithTaskID(id string) *JobError {
	e.TaskID = id
	return e
}

// Error returns the formatted error message.
func (e *JobError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.NotebookID != "" {
		parts = append(parts, fmt.Sprintf("notebook=%s", e.NotebookID))
	}
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}

	prefix := string(e.Category)
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", e.Category, strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target. A JobError matches the sentinel
// of its own category in addition to anything in its cause chain.
func (e *JobError) Is(target error) bool {
	if _, ok := target.(*JobError); ok {
		return true
	}
	if sentinel, ok := categorySentinels[e.Category]; ok && target == sentinel {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid command input.
//
// Example:
//
//	err := errors.NewValidationError("Usage: find-notebook <job_id>")
//	err = err.WithField("job_id")
type ValidationError struct {
	baseError
	Field string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message: message,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the message unchanged so usage text reaches the caller
// verbatim. The cause stays reachable through Unwrap.
func (e *ValidationError) Error() string {
	return e.message
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrValidation {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for source to be ready", 300*time.Second)
//	fmt.Println(err) // "timeout error: waiting for source to be ready (timeout: 5m0s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message: operation,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if target == ErrTimeout {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// CategoryOf returns the taxonomy category of err. The outermost JobError wins;
// otherwise sentinels are consulted. Unclassified errors are CategoryInternal.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}

	var jobErr *JobError
	if As(err, &jobErr) {
		return jobErr.Category
	}

	switch {
	case Is(err, ErrValidation):
		return CategoryValidation
	case Is(err, ErrNotAuthenticated):
		return CategoryNotAuthenticated
	case Is(err, ErrMissingInput):
		return CategoryMissingInput
	case Is(err, ErrGenerationRejected):
		return CategoryGenerationRejected
	case Is(err, ErrReadinessTimeout):
		return CategoryReadinessTimeout
	case Is(err, ErrGenerationTimeout):
		return CategoryGenerationTimeout
	case Is(err, ErrTimeout):
		return CategoryTimeout
	case Is(err, ErrCanceled):
		return CategoryCanceled
	case Is(err, ErrRemoteOperation):
		return CategoryRemoteOperation
	}
	return CategoryInternal
}

// ExitCode maps err onto the process exit code. A nil error is ExitOK.
//
// Example:
//
//	if err := cmd.Execute(ctx); err != nil {
//	    os.Exit(errors.ExitCode(err))
//	}
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch CategoryOf(err) {
	case CategoryValidation:
		return ExitUsage
	case CategoryNotAuthenticated:
		return ExitNotAuthenticated
	case CategoryMissingInput:
		return ExitMissingInput
	case CategoryReadinessTimeout, CategoryGenerationTimeout, CategoryTimeout:
		return ExitTimeout
	case CategoryGenerationRejected:
		return ExitGenerationRejected
	case CategoryCanceled:
		return ExitCanceled
	default:
		return ExitFailure
	}
}

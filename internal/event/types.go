package event

import (
	"github.com/automeetsslide/decksidecar/internal/errors"
)

// Status is the kind of an event.
type Status string

const (
	StatusProgress Status = "progress"
	StatusWaiting  Status = "waiting"
	StatusDone     Status = "done"
	StatusError    Status = "error"
)

// IsTerminal reports whether the status ends a command.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// Generation status values reported by find-notebook beyond the task states.
const (
	GenerationNoArtifact = "no_artifact"
	GenerationNotFound   = "not_found"
)

// Event is one status record. Optional fields are omitted when unset;
// booleans are pointers so that an explicit false is still written.
type Event struct {
	Status           Status `json:"status"`
	Message          string `json:"message"`
	Error            string `json:"error,omitempty"`
	Category         string `json:"category,omitempty"`
	NotebookID       string `json:"notebook_id,omitempty"`
	TaskID           string `json:"task_id,omitempty"`
	OutputPath       string `json:"output_path,omitempty"`
	Authenticated    *bool  `json:"authenticated,omitempty"`
	GenerationStatus string `json:"generation_status,omitempty"`
	IsComplete       *bool  `json:"is_complete,omitempty"`
	IsFailed         *bool  `json:"is_failed,omitempty"`
}

// Option sets an optional field on an Event.
type Option func(*Event)

// WithNotebookID sets notebook_id.
func WithNotebookID(id string) Option {
	return func(e *Event) { e.NotebookID = id }
}

// WithTaskID sets task_id.
func WithTaskID(id string) Option {
	return func(e *Event) { e.TaskID = id }
}

// WithOutputPath sets output_path.
func WithOutputPath(path string) Option {
	return func(e *Event) { e.OutputPath = path }
}

// WithAuthenticated sets authenticated.
func WithAuthenticated(ok bool) Option {
	return func(e *Event) { e.Authenticated = &ok }
}

// WithGenerationStatus sets generation_status alone.
func WithGenerationStatus(status string) Option {
	return func(e *Event) { e.GenerationStatus = status }
}

// WithGeneration sets generation_status, is_complete and is_failed together.
func WithGeneration(status string, complete, failed bool) Option {
	return func(e *Event) {
		e.GenerationStatus = status
		e.IsComplete = &complete
		e.IsFailed = &failed
	}
}

func newEvent(status Status, message string, opts []Option) Event {
	e := Event{Status: status, Message: message}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Progress creates a progress event.
func Progress(message string, opts ...Option) Event {
	return newEvent(StatusProgress, message, opts)
}

// Waiting creates a waiting event, used while a human has to act.
func Waiting(message string, opts ...Option) Event {
	return newEvent(StatusWaiting, message, opts)
}

// Done creates a terminal success event.
func Done(message string, opts ...Option) Event {
	return newEvent(StatusDone, message, opts)
}

// Failure creates a terminal error event with an explicit category.
func Failure(category errors.Category, message string, opts ...Option) Event {
	e := newEvent(StatusError, message, opts)
	e.Error = message
	e.Category = string(category)
	return e
}

// FromError creates the terminal error event for err. The message is the
// error text; the category comes from the error taxonomy.
func FromError(err error, opts ...Option) Event {
	return Failure(errors.CategoryOf(err), err.Error(), opts...)
}

// Package orchestrator sequences the remote operations that turn input
// documents into a downloaded slide deck, and provides the entry points a
// caller uses to recover a job it lost track of.
//
// Every entry point reports through an event.Publisher and ends with exactly
// one terminal event: done on success, error otherwise. The returned error
// mirrors the terminal error event so the caller can choose an exit code.
package orchestrator

import (
	"time"

	"github.com/automeetsslide/decksidecar/internal/config"
	"github.com/automeetsslide/decksidecar/internal/errors"
	"github.com/automeetsslide/decksidecar/internal/event"
	"github.com/automeetsslide/decksidecar/internal/logging"
	"github.com/automeetsslide/decksidecar/internal/workspace"
)

// DefaultDownloadName is the file name used by Download when no display name
// is given.
const DefaultDownloadName = "slides.pdf"

// Options holds the timing policy and naming used by an Orchestrator.
type Options struct {
	PollInterval       time.Duration
	SourceReadyTimeout time.Duration
	GenerationTimeout  time.Duration

	DefaultInstructions string
	TitlePrefix         string
	OutputSuffix        string
}

// OptionsFromConfig extracts orchestrator options from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:        cfg.Timing.PollInterval,
		SourceReadyTimeout:  cfg.Timing.SourceReadyTimeout,
		GenerationTimeout:   cfg.Timing.GenerationTimeout,
		DefaultInstructions: cfg.Generation.DefaultInstructions,
		TitlePrefix:         cfg.Generation.TitlePrefix,
		OutputSuffix:        cfg.Generation.OutputSuffix,
	}
}

// DefaultOptions returns the options of config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// Orchestrator drives one job at a time against a workspace.Client.
// It holds identifiers only; remote state is re-fetched on every check.
type Orchestrator struct {
	client workspace.Client
	events event.Publisher
	logger *logging.Logger
	opts   Options
}

// New creates an Orchestrator. A nil logger discards diagnostics.
func New(client workspace.Client, events event.Publisher, logger *logging.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Orchestrator{
		client: client,
		events: events,
		logger: logger,
		opts:   opts,
	}
}

func (o *Orchestrator) progress(message string, opts ...event.Option) {
	o.events.Publish(event.Progress(message, opts...))
}

func (o *Orchestrator) done(message string, opts ...event.Option) {
	o.events.Publish(event.Done(message, opts...))
}

// fail publishes the terminal error event for err and returns it.
func (o *Orchestrator) fail(err error, opts ...event.Option) error {
	o.logger.Error("job failed", "error", err.Error(), "category", string(errors.CategoryOf(err)))
	o.events.Publish(event.FromError(err, opts...))
	return err
}

// jobError builds a JobError for a failed step. Cancellation and
// authentication failures keep their own category whatever step they hit.
func jobError(category errors.Category, op, message string, cause error) *errors.JobError {
	switch {
	case errors.Is(cause, errors.ErrCanceled):
		category = errors.CategoryCanceled
	case errors.Is(cause, errors.ErrNotAuthenticated):
		category = errors.CategoryNotAuthenticated
	}
	return errors.NewJobError(category, op, message, cause)
}

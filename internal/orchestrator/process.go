package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/automeetsslide/decksidecar/internal/errors"
	"github.com/automeetsslide/decksidecar/internal/event"
	"github.com/automeetsslide/decksidecar/internal/pathalloc"
	"github.com/automeetsslide/decksidecar/internal/poll"
	"github.com/automeetsslide/decksidecar/internal/workspace"
)

// ProcessResult describes a finished job.
type ProcessResult struct {
	NotebookID string
	TaskID     string
	OutputPath string
	// GenerationFailed is set when the task ended failed but a deck was
	// downloaded anyway.
	GenerationFailed bool
}

// Process runs a job end to end: create a notebook, attach every source,
// wait for each to become ready, generate a slide deck, wait for it and
// download it under the output directory.
//
// Steps run strictly in order and sources are handled one at a time. The
// first failure ends the job with a single error event. A generation task
// that ends failed is not a failure: the download is attempted anyway.
func (o *Orchestrator) Process(ctx context.Context, job Job) (ProcessResult, error) {
	var result ProcessResult

	if err := job.Validate(); err != nil {
		return result, o.fail(err)
	}
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return result, o.fail(errors.NewJobError(errors.CategoryInternal, "prepare_output",
			fmt.Sprintf("cannot create output directory %s", job.OutputDir), err))
	}

	logger := o.logger.With("file", job.PrimaryFile, "job_id", job.JobID)
	o.progress("Connecting to workspace...")

	o.progress("Creating notebook...")
	nb, err := o.client.CreateNotebook(ctx, job.NotebookTitle(o.opts.TitlePrefix))
	if err != nil {
		return result, o.fail(jobError(errors.CategoryRemoteOperation, "create_notebook", "failed to create notebook", err))
	}
	result.NotebookID = nb.ID
	logger = logger.WithNotebook(nb.ID)
	logger.Info("notebook created", "title", nb.Title)
	o.progress("Notebook created: "+nb.ID, event.WithNotebookID(nb.ID))

	sources, err := o.attachSources(ctx, nb.ID, job)
	if err != nil {
		return result, o.fail(err, event.WithNotebookID(nb.ID))
	}

	for _, src := range sources {
		if err := o.waitForSource(ctx, nb.ID, src); err != nil {
			return result, o.fail(err, event.WithNotebookID(nb.ID))
		}
	}

	o.progress("Generating slide deck...", event.WithNotebookID(nb.ID))
	instructions := job.Instructions
	if instructions == "" {
		instructions = o.opts.DefaultInstructions
	}
	started, err := o.client.GenerateSlideDeck(ctx, nb.ID, instructions)
	if err != nil {
		return result, o.fail(jobError(errors.CategoryRemoteOperation, "generate_slide_deck",
			"failed to start slide generation", err).WithNotebookID(nb.ID), event.WithNotebookID(nb.ID))
	}
	if started.TaskID == "" {
		return result, o.fail(errors.NewJobError(errors.CategoryGenerationRejected, "generate_slide_deck",
			"Slide generation failed to start (no task_id returned). The API may have rejected the request.", nil).
			WithNotebookID(nb.ID), event.WithNotebookID(nb.ID))
	}
	result.TaskID = started.TaskID
	logger = logger.WithTask(started.TaskID)
	logger.Info("generation started")
	o.progress("Generation started, task_id: "+started.TaskID,
		event.WithNotebookID(nb.ID), event.WithTaskID(started.TaskID))

	final, err := o.waitForGeneration(ctx, nb.ID, started.TaskID)
	if err != nil {
		return result, o.fail(err, event.WithNotebookID(nb.ID), event.WithTaskID(started.TaskID))
	}
	if final.IsFailed() {
		result.GenerationFailed = true
		logger.Warn("generation reported failed, downloading anyway", "status", string(final.Status))
		o.progress(fmt.Sprintf("Generation status reports failed (status=%s), attempting download anyway...", final.Status),
			event.WithNotebookID(nb.ID), event.WithTaskID(started.TaskID))
	} else {
		o.progress("Slide generation complete!", event.WithNotebookID(nb.ID), event.WithTaskID(started.TaskID))
	}

	output := pathalloc.Unique(filepath.Join(job.OutputDir, pathalloc.OutputName(job.PrimaryFile, o.opts.OutputSuffix)))
	o.progress("Downloading PDF to: "+output, event.WithNotebookID(nb.ID), event.WithTaskID(started.TaskID))

	downloaded, err := o.client.DownloadSlideDeck(ctx, nb.ID, output, "")
	if err != nil {
		return result, o.fail(jobError(errors.CategoryRemoteOperation, "download_slide_deck",
			"failed to download slide deck", err).WithNotebookID(nb.ID).WithTaskID(started.TaskID),
			event.WithNotebookID(nb.ID), event.WithTaskID(started.TaskID))
	}
	result.OutputPath = downloaded
	logger.Info("slide deck downloaded", "output_path", downloaded)

	o.done("PDF downloaded: "+downloaded, event.WithOutputPath(downloaded), event.WithNotebookID(nb.ID))
	return result, nil
}

// attachSources uploads the primary file, then the additional files, then the
// URLs, and returns them in that order. Missing additional files are noted
// and skipped.
func (o *Orchestrator) attachSources(ctx context.Context, notebookID string, job Job) ([]sourceRef, error) {
	nbOpt := event.WithNotebookID(notebookID)

	primaryName := filepath.Base(job.PrimaryFile)
	o.progress(fmt.Sprintf("Uploading source: %s...", primaryName), nbOpt)
	primary, err := o.client.AddFileSource(ctx, notebookID, job.PrimaryFile)
	if err != nil {
		return nil, jobError(errors.CategoryRemoteOperation, "add_file_source",
			"failed to upload "+primaryName, err).WithNotebookID(notebookID)
	}
	o.progress("Source uploaded: "+primary.ID, nbOpt)
	sources := []sourceRef{{id: primary.ID, name: primaryName}}

	for _, path := range job.AdditionalFiles {
		if _, err := os.Stat(path); err != nil {
			o.logger.Warn("skipping missing source file", "path", path)
			o.progress("Skipping missing file: "+path, nbOpt)
			continue
		}
		name := filepath.Base(path)
		o.progress(fmt.Sprintf("Uploading additional source: %s...", name), nbOpt)
		src, err := o.client.AddFileSource(ctx, notebookID, path)
		if err != nil {
			return nil, jobError(errors.CategoryRemoteOperation, "add_file_source",
				"failed to upload "+name, err).WithNotebookID(notebookID)
		}
		o.progress("Additional source uploaded: "+src.ID, nbOpt)
		sources = append(sources, sourceRef{id: src.ID, name: name})
	}

	for _, u := range job.SourceURLs {
		o.progress(fmt.Sprintf("Adding URL source: %s...", u), nbOpt)
		src, err := o.client.AddURLSource(ctx, notebookID, u)
		if err != nil {
			return nil, jobError(errors.CategoryRemoteOperation, "add_url_source",
				"failed to add "+u, err).WithNotebookID(notebookID)
		}
		o.progress("URL source added: "+src.ID, nbOpt)
		sources = append(sources, sourceRef{id: src.ID, name: u})
	}

	return sources, nil
}

// waitForSource blocks until one source is ready. The readiness budget
// applies to each source separately.
func (o *Orchestrator) waitForSource(ctx context.Context, notebookID string, src sourceRef) error {
	o.progress(fmt.Sprintf("Waiting for source to be processed: %s...", src.name), event.WithNotebookID(notebookID))

	ready, err := poll.Until(ctx, poll.Options{
		Operation: "waiting for source " + src.name,
		Interval:  o.opts.PollInterval,
		Timeout:   o.opts.SourceReadyTimeout,
		OnPending: func(elapsed time.Duration) {
			o.logger.Debug("source not ready", "source_id", src.id, "elapsed", elapsed.String())
		},
	}, func(ctx context.Context) (workspace.Source, poll.Outcome, error) {
		s, err := o.client.GetSource(ctx, notebookID, src.id)
		switch {
		case err != nil:
			return s, poll.Abort, err
		case s.IsFailed():
			return s, poll.Abort, fmt.Errorf("%w: source %s failed processing", errors.ErrRemoteOperation, src.name)
		case s.IsReady():
			return s, poll.Settled, nil
		default:
			return s, poll.Pending, nil
		}
	})
	if err != nil {
		category := errors.CategoryRemoteOperation
		if errors.Is(err, errors.ErrTimeout) {
			category = errors.CategoryReadinessTimeout
		}
		return jobError(category, "wait_source_ready",
			fmt.Sprintf("source %s did not become ready", src.name), err).WithNotebookID(notebookID)
	}

	title := ready.Title
	if title == "" {
		title = src.name
	}
	o.progress("Source ready: "+title, event.WithNotebookID(notebookID))
	return nil
}

// waitForGeneration polls the task until it is terminal.
func (o *Orchestrator) waitForGeneration(ctx context.Context, notebookID, taskID string) (workspace.GenerationStatus, error) {
	o.progress("Waiting for slide generation to complete...", event.WithNotebookID(notebookID), event.WithTaskID(taskID))

	status, err := poll.Until(ctx, poll.Options{
		Operation: "waiting for slide generation",
		Interval:  o.opts.PollInterval,
		Timeout:   o.opts.GenerationTimeout,
		OnPending: func(elapsed time.Duration) {
			o.logger.Debug("generation pending", "task_id", taskID, "elapsed", elapsed.String())
		},
	}, func(ctx context.Context) (workspace.GenerationStatus, poll.Outcome, error) {
		s, err := o.client.PollGeneration(ctx, notebookID, taskID)
		switch {
		case err != nil:
			return s, poll.Abort, err
		case s.IsTerminal():
			return s, poll.Settled, nil
		default:
			return s, poll.Pending, nil
		}
	})
	if err != nil {
		category := errors.CategoryRemoteOperation
		if errors.Is(err, errors.ErrTimeout) {
			category = errors.CategoryGenerationTimeout
		}
		return status, jobError(category, "wait_generation", "slide generation did not finish", err).
			WithNotebookID(notebookID).WithTaskID(taskID)
	}
	return status, nil
}

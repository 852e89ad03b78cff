package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/automeetsslide/decksidecar/internal/errors"
	"github.com/automeetsslide/decksidecar/internal/event"
	"github.com/automeetsslide/decksidecar/internal/pathalloc"
	"github.com/automeetsslide/decksidecar/internal/workspace"
)

// FindResult is the outcome of a notebook search by job ID.
type FindResult struct {
	NotebookID string
	// TaskID is the slide artifact's ID, usable with CheckStatus and Download.
	TaskID string
	// GenerationStatus is a task status, or event.GenerationNoArtifact or
	// event.GenerationNotFound.
	GenerationStatus string
	IsComplete       bool
	IsFailed         bool
}

// Found reports whether a notebook matched.
func (r FindResult) Found() bool { return r.NotebookID != "" }

// HasArtifact reports whether the matched notebook has a slide artifact.
func (r FindResult) HasArtifact() bool { return r.TaskID != "" }

// FindNotebook recovers a job's notebook from its job ID. The first notebook
// in listing order whose title contains jobID wins. If it has a slide deck
// artifact, that artifact's state is reported. Remote state is never changed.
func (o *Orchestrator) FindNotebook(ctx context.Context, jobID string) (FindResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return FindResult{}, o.fail(errors.NewValidationError("Usage: find-notebook <job_id>").WithField("job_id"))
	}

	o.progress("Searching for notebook with job ID: " + jobID)

	notebooks, err := o.client.ListNotebooks(ctx)
	if err != nil {
		return FindResult{}, o.fail(jobError(errors.CategoryRemoteOperation, "list_notebooks", "failed to list notebooks", err))
	}

	var match *workspace.Notebook
	for i := range notebooks {
		if strings.Contains(notebooks[i].Title, jobID) {
			match = &notebooks[i]
			break
		}
	}
	if match == nil {
		o.logger.Info("no notebook matches job", "job_id", jobID, "searched", len(notebooks))
		o.done("No matching notebook found", event.WithGenerationStatus(event.GenerationNotFound))
		return FindResult{GenerationStatus: event.GenerationNotFound}, nil
	}

	o.progress("Found notebook: "+match.ID, event.WithNotebookID(match.ID))

	artifacts, err := o.client.ListArtifacts(ctx, match.ID)
	if err != nil {
		return FindResult{}, o.fail(jobError(errors.CategoryRemoteOperation, "list_artifacts",
			"failed to list artifacts", err).WithNotebookID(match.ID), event.WithNotebookID(match.ID))
	}

	for _, a := range artifacts {
		if a.Kind != workspace.KindSlideDeck {
			continue
		}
		result := FindResult{
			NotebookID:       match.ID,
			TaskID:           a.ID,
			GenerationStatus: string(a.GenerationState()),
			IsComplete:       a.IsCompleted(),
			IsFailed:         a.IsFailed(),
		}
		o.done("Found notebook with slide artifact",
			event.WithNotebookID(result.NotebookID),
			event.WithTaskID(result.TaskID),
			event.WithGeneration(result.GenerationStatus, result.IsComplete, result.IsFailed))
		return result, nil
	}

	o.done("Found notebook but no slide artifact",
		event.WithNotebookID(match.ID),
		event.WithGenerationStatus(event.GenerationNoArtifact))
	return FindResult{NotebookID: match.ID, GenerationStatus: event.GenerationNoArtifact}, nil
}

// CheckStatus polls a generation task exactly once.
func (o *Orchestrator) CheckStatus(ctx context.Context, notebookID, taskID string) (workspace.GenerationStatus, error) {
	if notebookID == "" || taskID == "" {
		return workspace.GenerationStatus{}, o.fail(errors.NewValidationError("Usage: check-status <notebook_id> <task_id>"))
	}

	o.progress("Checking generation status...", event.WithNotebookID(notebookID), event.WithTaskID(taskID))

	status, err := o.client.PollGeneration(ctx, notebookID, taskID)
	if err != nil {
		return status, o.fail(jobError(errors.CategoryRemoteOperation, "poll_generation",
			"failed to check generation status", err).WithNotebookID(notebookID).WithTaskID(taskID),
			event.WithNotebookID(notebookID), event.WithTaskID(taskID))
	}

	o.done(fmt.Sprintf("Status: %s", status.Status),
		event.WithGeneration(string(status.Status), status.IsComplete(), status.IsFailed()),
		event.WithNotebookID(notebookID),
		event.WithTaskID(taskID))
	return status, nil
}

// DownloadRequest names a slide deck to fetch.
type DownloadRequest struct {
	NotebookID string
	OutputDir  string
	// Name is the display stem of the output file; empty uses DefaultDownloadName.
	Name string
	// ArtifactID selects a specific artifact; empty selects the most recent.
	ArtifactID string
}

// Download fetches a slide deck to a fresh path under the output directory.
func (o *Orchestrator) Download(ctx context.Context, req DownloadRequest) (string, error) {
	if req.NotebookID == "" || req.OutputDir == "" {
		return "", o.fail(errors.NewValidationError("Usage: download <notebook_id> <output_dir> [--name <stem>] [--artifact-id <id>]"))
	}
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return "", o.fail(errors.NewJobError(errors.CategoryInternal, "prepare_output",
			fmt.Sprintf("cannot create output directory %s", req.OutputDir), err))
	}

	o.progress("Downloading slide deck...", event.WithNotebookID(req.NotebookID))

	name := DefaultDownloadName
	if req.Name != "" {
		name = filepath.Base(req.Name) + o.opts.OutputSuffix
	}
	output := pathalloc.Unique(filepath.Join(req.OutputDir, name))

	downloaded, err := o.client.DownloadSlideDeck(ctx, req.NotebookID, output, req.ArtifactID)
	if err != nil {
		return "", o.fail(jobError(errors.CategoryRemoteOperation, "download_slide_deck",
			"failed to download slide deck", err).WithNotebookID(req.NotebookID), event.WithNotebookID(req.NotebookID))
	}

	o.logger.Info("slide deck downloaded", "notebook_id", req.NotebookID, "output_path", downloaded)
	o.done("PDF downloaded: "+downloaded, event.WithOutputPath(downloaded), event.WithNotebookID(req.NotebookID))
	return downloaded, nil
}

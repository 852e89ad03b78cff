package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/automeetsslide/decksidecar/internal/errors"
)

// Job is the input of one process invocation. It is built from command
// arguments and never persisted; the job ID embedded in the notebook title is
// the only recovery key.
type Job struct {
	PrimaryFile     string
	OutputDir       string
	Instructions    string // empty selects the default instructions
	JobID           string
	AdditionalFiles []string
	SourceURLs      []string
}

// Validate checks the preconditions that need no remote call: the output
// directory is named and the primary file exists.
func (j Job) Validate() error {
	if j.PrimaryFile == "" {
		return errors.NewValidationError("primary file is required").WithField("file")
	}
	if j.OutputDir == "" {
		return errors.NewValidationError("output directory is required").WithField("output_dir")
	}

	info, err := os.Stat(j.PrimaryFile)
	if err != nil {
		return errors.NewJobError(errors.CategoryMissingInput, "validate",
			fmt.Sprintf("File not found: %s", j.PrimaryFile), nil)
	}
	if info.IsDir() {
		return errors.NewJobError(errors.CategoryMissingInput, "validate",
			fmt.Sprintf("Not a file: %s", j.PrimaryFile), nil)
	}
	return nil
}

// NotebookTitle builds the notebook title for the job. When a job ID is set
// it appears verbatim in brackets so FindNotebook can match it later.
func (j Job) NotebookTitle(prefix string) string {
	title := prefix + filepath.Base(j.PrimaryFile)
	if j.JobID != "" {
		title += " [" + j.JobID + "]"
	}
	return title
}

// sourceRef is a source the job created and must wait on.
type sourceRef struct {
	id   string
	name string
}

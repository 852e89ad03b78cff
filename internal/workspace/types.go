// Package workspace is the sidecar's view of the remote notebook service:
// notebooks, the sources attached to them, and the artifacts generated from
// them. The orchestrator talks to the service only through [Client].
package workspace

import (
	"context"
	"strings"
)

// Client is the remote workspace capability. Implementations must not cache
// remote state between calls; every method re-fetches.
type Client interface {
	CreateNotebook(ctx context.Context, title string) (Notebook, error)
	ListNotebooks(ctx context.Context) ([]Notebook, error)

	AddFileSource(ctx context.Context, notebookID, path string) (Source, error)
	AddURLSource(ctx context.Context, notebookID, url string) (Source, error)
	GetSource(ctx context.Context, notebookID, sourceID string) (Source, error)

	GenerateSlideDeck(ctx context.Context, notebookID, instructions string) (GenerationStatus, error)
	PollGeneration(ctx context.Context, notebookID, taskID string) (GenerationStatus, error)
	ListArtifacts(ctx context.Context, notebookID string) ([]Artifact, error)
	// DownloadSlideDeck writes the slide deck to dest and returns the written
	// path. An empty artifactID selects the most recent completed slide deck.
	DownloadSlideDeck(ctx context.Context, notebookID, dest, artifactID string) (string, error)
}

// Notebook is a remote container of sources and artifacts.
type Notebook struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SourceStatus is the ingestion state of a source.
type SourceStatus string

const (
	SourceProcessing SourceStatus = "processing"
	SourceReady      SourceStatus = "ready"
	SourceFailed     SourceStatus = "error"
)

// Source is an uploaded file or registered URL attached to a notebook.
type Source struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Status SourceStatus `json:"status"`
}

// IsReady reports whether the source can be used as generation input.
func (s Source) IsReady() bool { return s.Status == SourceReady }

// IsFailed reports whether the service gave up ingesting the source.
func (s Source) IsFailed() bool { return s.Status == SourceFailed }

// TaskStatus is the state of a generation task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// GenerationStatus is one observation of a generation task. An empty TaskID
// means the service rejected the request.
type GenerationStatus struct {
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
}

// IsComplete reports whether the task completed.
func (g GenerationStatus) IsComplete() bool { return g.Status == TaskCompleted }

// IsFailed reports whether the task failed.
func (g GenerationStatus) IsFailed() bool { return g.Status == TaskFailed }

// IsTerminal reports whether polling can stop.
func (g GenerationStatus) IsTerminal() bool { return g.IsComplete() || g.IsFailed() }

// ArtifactKind is the closed set of artifact kinds. It is resolved once when
// the client decodes a response.
type ArtifactKind int

const (
	KindUnknown ArtifactKind = iota
	KindSlideDeck
	KindAudioOverview
	KindReport
)

// String returns the canonical wire name.
func (k ArtifactKind) String() string {
	switch k {
	case KindSlideDeck:
		return "slide_deck"
	case KindAudioOverview:
		return "audio_overview"
	case KindReport:
		return "report"
	default:
		return "unknown"
	}
}

// ParseArtifactKind maps a wire kind name onto ArtifactKind.
func ParseArtifactKind(s string) ArtifactKind {
	switch strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s))) {
	case "slide_deck", "slides", "slide":
		return KindSlideDeck
	case "audio_overview", "audio":
		return KindAudioOverview
	case "report", "briefing_doc":
		return KindReport
	default:
		return KindUnknown
	}
}

// Artifact is a generated output attached to a notebook.
type Artifact struct {
	ID     string
	Title  string
	Kind   ArtifactKind
	Status TaskStatus
}

// IsCompleted reports whether the artifact finished generating.
func (a Artifact) IsCompleted() bool { return a.Status == TaskCompleted }

// IsProcessing reports whether the artifact is still being generated.
func (a Artifact) IsProcessing() bool {
	return a.Status == TaskProcessing || a.Status == TaskPending
}

// IsFailed reports whether generation of the artifact failed.
func (a Artifact) IsFailed() bool { return a.Status == TaskFailed }

// GenerationState derives a task status from the artifact's flags.
// Completed wins over processing, which wins over failed.
func (a Artifact) GenerationState() TaskStatus {
	switch {
	case a.IsCompleted():
		return TaskCompleted
	case a.IsProcessing():
		return TaskProcessing
	default:
		return TaskFailed
	}
}

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/automeetsslide/decksidecar/internal/event"
	"github.com/automeetsslide/decksidecar/internal/workspace"
)

// fakeClient is a scripted workspace.Client that records every call.
type fakeClient struct {
	mu    sync.Mutex
	calls []string

	notebooks []workspace.Notebook
	artifacts map[string][]workspace.Artifact

	// sourceReadyAfter is the number of not-ready polls per source; -1 never ready.
	sourceReadyAfter int
	sourceFailed     bool
	sourcePolls      map[string]int

	taskID       string
	taskStatuses []workspace.TaskStatus
	taskPolls    int

	errs map[string]error

	uploads []string
	urls    []string
	seq     int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		artifacts:    make(map[string][]workspace.Artifact),
		sourcePolls:  make(map[string]int),
		taskID:       "task-1",
		taskStatuses: []workspace.TaskStatus{workspace.TaskCompleted},
		errs:         make(map[string]error),
	}
}

func (f *fakeClient) record(op string) error {
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeClient) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeClient) CreateNotebook(_ context.Context, title string) (workspace.Notebook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create_notebook"); err != nil {
		return workspace.Notebook{}, err
	}
	nb := workspace.Notebook{ID: f.nextID("nb"), Title: title}
	f.notebooks = append(f.notebooks, nb)
	return nb, nil
}

func (f *fakeClient) ListNotebooks(context.Context) ([]workspace.Notebook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list_notebooks"); err != nil {
		return nil, err
	}
	return append([]workspace.Notebook(nil), f.notebooks...), nil
}

func (f *fakeClient) AddFileSource(_ context.Context, _ string, path string) (workspace.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("add_file_source"); err != nil {
		return workspace.Source{}, err
	}
	f.uploads = append(f.uploads, filepath.Base(path))
	return workspace.Source{ID: f.nextID("src"), Title: filepath.Base(path), Status: workspace.SourceProcessing}, nil
}

func (f *fakeClient) AddURLSource(_ context.Context, _ string, url string) (workspace.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("add_url_source"); err != nil {
		return workspace.Source{}, err
	}
	f.urls = append(f.urls, url)
	return workspace.Source{ID: f.nextID("src"), Title: url, Status: workspace.SourceProcessing}, nil
}

func (f *fakeClient) GetSource(_ context.Context, _ string, sourceID string) (workspace.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get_source"); err != nil {
		return workspace.Source{}, err
	}
	f.sourcePolls[sourceID]++
	src := workspace.Source{ID: sourceID, Status: workspace.SourceProcessing}
	switch {
	case f.sourceFailed:
		src.Status = workspace.SourceFailed
	case f.sourceReadyAfter >= 0 && f.sourcePolls[sourceID] > f.sourceReadyAfter:
		src.Status = workspace.SourceReady
	}
	return src, nil
}

func (f *fakeClient) GenerateSlideDeck(context.Context, string, string) (workspace.GenerationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("generate_slide_deck"); err != nil {
		return workspace.GenerationStatus{}, err
	}
	return workspace.GenerationStatus{TaskID: f.taskID, Status: workspace.TaskPending}, nil
}

func (f *fakeClient) PollGeneration(_ context.Context, _ string, taskID string) (workspace.GenerationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("poll_generation"); err != nil {
		return workspace.GenerationStatus{}, err
	}
	i := f.taskPolls
	if i >= len(f.taskStatuses) {
		i = len(f.taskStatuses) - 1
	}
	f.taskPolls++
	return workspace.GenerationStatus{TaskID: taskID, Status: f.taskStatuses[i]}, nil
}

func (f *fakeClient) ListArtifacts(_ context.Context, notebookID string) ([]workspace.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list_artifacts"); err != nil {
		return nil, err
	}
	return f.artifacts[notebookID], nil
}

func (f *fakeClient) DownloadSlideDeck(_ context.Context, _ string, dest, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("download_slide_deck"); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, []byte("%PDF"), 0644); err != nil {
		return "", err
	}
	return dest, nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.PollInterval = time.Millisecond
	opts.SourceReadyTimeout = 50 * time.Millisecond
	opts.GenerationTimeout = 50 * time.Millisecond
	return opts
}

func newTestOrchestrator(client workspace.Client) (*Orchestrator, *event.Recorder) {
	rec := &event.Recorder{}
	return New(client, rec, nil, testOptions()), rec
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("input "+name), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func terminalEvents(rec *event.Recorder) []event.Event {
	var out []event.Event
	for _, e := range rec.Events() {
		if e.Status.IsTerminal() {
			out = append(out, e)
		}
	}
	return out
}

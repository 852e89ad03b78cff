package event

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/automeetsslide/decksidecar/internal/errors"
)

func encode(t *testing.T, e Event) string {
	t.Helper()
	var buf bytes.Buffer
	NewLineWriter(&buf).Handle(e)
	return buf.String()
}

func TestLineWriter_Format(t *testing.T) {
	tests := []struct {
		name string
		e    Event
		want string
	}{
		{
			name: "bare progress",
			e:    Progress("Creating notebook..."),
			want: `{"status":"progress","message":"Creating notebook..."}`,
		},
		{
			name: "progress with notebook",
			e:    Progress("Notebook created: nb-1", WithNotebookID("nb-1")),
			want: `{"status":"progress","message":"Notebook created: nb-1","notebook_id":"nb-1"}`,
		},
		{
			name: "explicit false is written",
			e:    Failure(errors.CategoryNotAuthenticated, "Storage file not found", WithAuthenticated(false)),
			want: `{"status":"error","message":"Storage file not found","error":"Storage file not found","category":"not_authenticated","authenticated":false}`,
		},
		{
			name: "generation fields",
			e:    Done("Status: processing", WithGeneration("processing", false, false), WithTaskID("t-1")),
			want: `{"status":"done","message":"Status: processing","task_id":"t-1","generation_status":"processing","is_complete":false,"is_failed":false}`,
		},
		{
			name: "html is not escaped",
			e:    Progress("Waiting for <source> & more"),
			want: `{"status":"progress","message":"Waiting for <source> & more"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encode(t, tt.e)
			if !strings.HasSuffix(got, "\n") {
				t.Errorf("line not newline-terminated: %q", got)
			}
			if strings.TrimSuffix(got, "\n") != tt.want {
				t.Errorf("got  %s\nwant %s", strings.TrimSuffix(got, "\n"), tt.want)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	err := errors.NewJobError(errors.CategoryGenerationRejected, "generate_slide_deck", "no task id returned", nil)
	e := FromError(err, WithNotebookID("nb-1"))

	if e.Status != StatusError {
		t.Errorf("Status = %q, want error", e.Status)
	}
	if e.Category != "generation_rejected" {
		t.Errorf("Category = %q", e.Category)
	}
	if e.Message != err.Error() || e.Error != err.Error() {
		t.Errorf("Message/Error = %q/%q, want %q", e.Message, e.Error, err.Error())
	}
	if e.NotebookID != "nb-1" {
		t.Errorf("NotebookID = %q", e.NotebookID)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusProgress: false,
		StatusWaiting:  false,
		StatusDone:     true,
		StatusError:    true,
	} {
		if got := s.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, want)
		}
	}
}

func TestLineWriter_OneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)
	lw.Handle(Progress("multi\nline message"))
	lw.Handle(Done("ok"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Errorf("line %q is not valid JSON: %v", line, err)
		}
	}
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	if _, ok := rec.Last(); ok {
		t.Error("Last() on empty recorder should report false")
	}

	rec.Publish(Progress("a"))
	rec.Publish(Progress("b"))
	rec.Publish(Done("c"))

	if got := len(rec.WithStatus(StatusProgress)); got != 2 {
		t.Errorf("WithStatus(progress) = %d, want 2", got)
	}
	last, ok := rec.Last()
	if !ok || last.Message != "c" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

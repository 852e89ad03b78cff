package event

import (
	"encoding/json"
	"io"
	"sync"
)

// LineWriter encodes events as one JSON object per line.
// Write errors are dropped: a caller that stopped reading must not stall a job.
type LineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewLineWriter creates a LineWriter over w.
func NewLineWriter(w io.Writer) *LineWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &LineWriter{enc: enc}
}

// Handle writes e. It has the Handler signature so it can be subscribed directly.
func (lw *LineWriter) Handle(e Event) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_ = lw.enc.Encode(e)
}

// Recorder keeps every event it receives, in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Handle records e.
func (r *Recorder) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Publish records e, so a Recorder can stand in for a Bus.
func (r *Recorder) Publish(e Event) {
	r.Handle(e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event and false if nothing was recorded.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// WithStatus returns the recorded events of one status.
func (r *Recorder) WithStatus(s Status) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Status == s {
			out = append(out, e)
		}
	}
	return out
}

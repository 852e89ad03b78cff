// Package event implements the status-event protocol the sidecar speaks on
// stdout, plus the small bus that fans events out to their consumers.
//
// Every command communicates exclusively through events: one self-contained
// JSON object per line, written in strict order of occurrence. Publishing is
// fire-and-forget. Nothing in the orchestrator waits on, or depends on, the
// events being observed.
//
// # Main Types
//
//   - [Event]: one status record (status, message, and optional fields)
//   - [Status]: progress, waiting, done, error
//   - [Bus]: synchronous dispatcher; handlers subscribe per status or to all
//   - [LineWriter]: handler that encodes events as JSON lines
//   - [Recorder]: handler that keeps events in memory, for tests and callers
//
// # Wire Format
//
//	{"status":"progress","message":"Creating notebook..."}
//	{"status":"progress","message":"Notebook created: nb-1","notebook_id":"nb-1"}
//	{"status":"done","message":"PDF downloaded: /out/notes_slides.pdf","notebook_id":"nb-1","output_path":"/out/notes_slides.pdf"}
//
// Error events always carry both "message" and "error" with the same text, and
// a "category" naming the failure class:
//
//	{"status":"error","message":"File not found: /in/missing.pdf","error":"File not found: /in/missing.pdf","category":"missing_input"}
//
// Older callers that only look for an "error" key keep working.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.SubscribeAll(event.NewLineWriter(os.Stdout).Handle)
//
//	bus.Publish(event.Progress("Uploading source: notes.pdf..."))
//	bus.Publish(event.Done("Authenticated", event.WithAuthenticated(true)))
//
// # Thread Safety
//
// [Bus], [LineWriter] and [Recorder] are safe for concurrent use. Handlers
// are called synchronously and protected against panics.
package event

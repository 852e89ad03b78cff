// Package workspacetest provides an in-memory workspace service over HTTP
// for exercising workspace.HTTPClient and the commands built on it.
package workspacetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// DeckContent is the body served by the download endpoint.
var DeckContent = []byte("%PDF-1.7\n% fake slide deck\n")

// Behavior tunes how the fake service progresses. The zero value makes every
// source ready and every task complete on the first poll.
type Behavior struct {
	// SourcePollsUntilReady is the number of GET source calls answered with
	// "processing" before "ready".
	SourcePollsUntilReady int
	// SourceNeverReady keeps every source processing.
	SourceNeverReady bool
	// SourceFails answers source polls with "error".
	SourceFails bool
	// TaskPollsUntilDone is the number of task polls answered with "processing".
	TaskPollsUntilDone int
	// RejectGeneration returns an empty task id from the generate call.
	RejectGeneration bool
	// FailGeneration makes tasks end "failed". The slide artifact is still
	// downloadable.
	FailGeneration bool
	// RequireCookie rejects requests whose Cookie header lacks this value.
	RequireCookie string
	// FailPaths answers requests whose path has this suffix with HTTP 500.
	FailPaths []string
}

type source struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	polls  int
}

type task struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	polls  int
}

type artifact struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

type notebook struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	sources   []*source
	tasks     map[string]*task
	artifacts []*artifact
}

// Server is a fake workspace service. It is safe for concurrent use.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	behavior  Behavior
	notebooks []*notebook
	calls     map[string]int
	uploads   map[string][]string
	seq       int
}

// New starts a fake service and registers its shutdown with t.
func New(t testing.TB, b Behavior) *Server {
	t.Helper()

	s := &Server{
		behavior: b,
		calls:    make(map[string]int),
		uploads:  make(map[string][]string),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.auth)
	r.Use(s.injectFailures)

	r.Post("/notebooks", s.createNotebook)
	r.Get("/notebooks", s.listNotebooks)

	r.Route("/notebooks/{nb}", func(r chi.Router) {
		r.Post("/sources/file", s.addFileSource)
		r.Post("/sources/url", s.addURLSource)
		r.Get("/sources/{id}", s.getSource)

		r.Post("/artifacts/slide-deck", s.generate)
		r.Get("/artifacts/slide-deck/download", s.download)
		r.Get("/artifacts", s.listArtifacts)
		r.Get("/tasks/{task}", s.pollTask)
	})
	return r
}

// SeedNotebook adds a notebook with the given artifacts and returns its id.
// Each artifact is given as kind and status.
func (s *Server) SeedNotebook(title string, artifacts ...[2]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb := s.newNotebook(title)
	for _, a := range artifacts {
		nb.artifacts = append(nb.artifacts, &artifact{
			ID:     s.nextID("art"),
			Title:  title,
			Kind:   a[0],
			Status: a[1],
		})
	}
	return nb.ID
}

// Calls returns how many requests hit the named operation. Names are
// create_notebook, list_notebooks, add_file_source, add_url_source,
// get_source, generate, poll_task, list_artifacts and download.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Uploads returns the file names uploaded to a notebook, in order.
func (s *Server) Uploads(notebookID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads[notebookID]...)
}

// Titles returns every notebook title, in creation order.
func (s *Server) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.notebooks))
	for _, nb := range s.notebooks {
		titles = append(titles, nb.Title)
	}
	return titles
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := s.behavior.RequireCookie; want != "" && !strings.Contains(r.Header.Get("Cookie"), want) {
			writeError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, suffix := range s.behavior.FailPaths {
			if strings.HasSuffix(r.URL.Path, suffix) {
				writeError(w, http.StatusInternalServerError, "injected failure")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) createNotebook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.calls["create_notebook"]++
	nb := s.newNotebook(req.Title)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, nb)
}

func (s *Server) listNotebooks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.calls["list_notebooks"]++
	out := make([]notebook, 0, len(s.notebooks))
	for _, nb := range s.notebooks {
		out = append(out, notebook{ID: nb.ID, Title: nb.Title})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addFileSource(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["add_file_source"]++

	nb := s.lookup(chi.URLParam(r, "nb"))
	if nb == nil {
		writeError(w, http.StatusNotFound, "notebook not found")
		return
	}
	s.uploads[nb.ID] = append(s.uploads[nb.ID], header.Filename)
	writeJSON(w, http.StatusCreated, s.addSource(nb, header.Filename))
}

func (s *Server) addURLSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["add_url_source"]++

	nb := s.lookup(chi.URLParam(r, "nb"))
	if nb == nil {
		writeError(w, http.StatusNotFound, "notebook not found")
		return
	}
	writeJSON(w, http.StatusCreated, s.addSource(nb, req.URL))
}

func (s *Server) getSource(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["get_source"]++

	nb := s.lookup(chi.URLParam(r, "nb"))
	if nb == nil {
		writeError(w, http.StatusNotFound, "notebook not found")
		return
	}
	id := chi.URLParam(r, "id")
	for _, src := range nb.sources {
		if src.ID != id {
			continue
		}
		src.polls++
		switch {
		case s.behavior.SourceFails:
			src.Status = "error"
		case s.behavior.SourceNeverReady:
			src.Status = "processing"
		case src.polls > s.behavior.SourcePollsUntilReady:
			src.Status = "ready"
		}
		writeJSON(w, http.StatusOK, src)
		return
	}
	writeError(w, http.StatusNotFound, "source not found")
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["generate"]++

	nb := s.lookup(chi.URLParam(r, "nb"))
	if nb == nil {
		writeError(w, http.StatusNotFound, "notebook not found")
		return
	}
	if s.behavior.RejectGeneration {
		writeJSON(w, http.StatusOK, task{Status: "failed"})
		return
	}

	t := &task{TaskID: s.nextID("task"), Status: "pending"}
	nb.tasks[t.TaskID] = t
	nb.artifacts = append(nb.artifacts, &artifact{
		ID:     t.TaskID,
		Title:  nb.Title,
		Kind:   "slide_deck",
		Status: "processing",
	})
	writeJSON(w, http.StatusAccepted, t)
}

func (s *Server) pollTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["poll_task"]++

	nb := s.lookup(chi.URLParam(r, "nb"))
	if nb == nil {
		writeError(w, http.StatusNotFound, "notebook not found")
		return
	}
	t, ok := nb.tasks[chi.URLParam(r, "task")]
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	t.polls++
	if t.polls > s.behavior.TaskPollsUntilDone {
		t.Status = "completed"
		if s.behavior.FailGeneration {
			t.Status = "failed"
		}
	} else {
		t.Status = "processing"
	}
	for _, a := range nb.artifacts {
		if a.ID == t.TaskID {
			a.Status = t.Status
		}
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) listArtifacts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["list_artifacts"]++

	nb := s.lookup(chi.URLParam(r, "nb"))
	if nb == nil {
		writeError(w, http.StatusNotFound, "notebook not found")
		return
	}
	out := make([]artifact, 0, len(nb.artifacts))
	for _, a := range nb.artifacts {
		out = append(out, *a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls["download"]++
	nb := s.lookup(chi.URLParam(r, "nb"))
	var found bool
	if nb != nil {
		want := r.URL.Query().Get("artifact_id")
		for _, a := range nb.artifacts {
			if a.Kind == "slide_deck" && (want == "" || a.ID == want) {
				found = true
			}
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "no slide deck artifact")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(DeckContent)
}

// newNotebook must be called with mu held.
func (s *Server) newNotebook(title string) *notebook {
	nb := &notebook{
		ID:    s.nextID("nb"),
		Title: title,
		tasks: make(map[string]*task),
	}
	s.notebooks = append(s.notebooks, nb)
	return nb
}

func (s *Server) addSource(nb *notebook, title string) *source {
	src := &source{ID: s.nextID("src"), Title: title, Status: "processing"}
	nb.sources = append(nb.sources, src)
	return src
}

func (s *Server) lookup(id string) *notebook {
	for _, nb := range s.notebooks {
		if nb.ID == id {
			return nb
		}
	}
	return nil
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

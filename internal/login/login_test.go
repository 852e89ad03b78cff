package login

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/automeetsslide/decksidecar/internal/credentials"
	"github.com/automeetsslide/decksidecar/internal/errors"
	"github.com/automeetsslide/decksidecar/internal/event"
)

const validState = `{"cookies":[{"name":"SID","value":"session-token","domain":".google.com","path":"/","expires":-1}],"origins":[]}`

// fakeRunner simulates a helper that writes content to the storage file
// after delay, then exits with exitErr.
type fakeRunner struct {
	content string
	delay   time.Duration
	exitErr error
	stay    bool // keep running after writing

	argv []string
	env  []string
}

func (r *fakeRunner) Start(ctx context.Context, argv []string, env []string) (<-chan error, error) {
	r.argv = argv
	r.env = env

	var storage string
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, EnvStoragePath+"="); ok {
			storage = v
		}
	}

	done := make(chan error, 1)
	go func() {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			done <- ctx.Err()
			return
		}
		if r.content != "" {
			_ = os.WriteFile(storage, []byte(r.content), 0644)
		}
		if r.stay {
			<-ctx.Done()
			done <- ctx.Err()
			return
		}
		done <- r.exitErr
	}()
	return done, nil
}

func newTestFlow(t *testing.T, runner Runner, timeout time.Duration) (*Flow, *event.Recorder, credentials.Paths) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "creds")
	paths := credentials.Paths{
		Dir:            dir,
		StorageFile:    filepath.Join(dir, "storage_state.json"),
		BrowserProfile: filepath.Join(dir, "browser_profile"),
	}
	rec := &event.Recorder{}
	flow := New(credentials.NewStore(paths), rec, nil, Options{
		Command:      []string{"login-helper", "--headed"},
		PollInterval: 5 * time.Millisecond,
		Timeout:      timeout,
	}).WithRunner(runner)
	return flow, rec, paths
}

func TestRun_Success(t *testing.T) {
	runner := &fakeRunner{content: validState, delay: 20 * time.Millisecond, stay: true}
	flow, rec, paths := newTestFlow(t, runner, 2*time.Second)

	got, err := flow.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != paths.StorageFile {
		t.Errorf("Run() = %q, want %q", got, paths.StorageFile)
	}

	info, err := os.Stat(paths.StorageFile)
	if err != nil {
		t.Fatalf("storage file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("storage file mode = %o, want 600", perm)
	}
	for _, dir := range []string{paths.Dir, paths.BrowserProfile} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("%s mode = %o, want 700", dir, perm)
		}
	}

	if strings.Join(runner.argv, " ") != "login-helper --headed" {
		t.Errorf("argv = %v", runner.argv)
	}

	if len(rec.WithStatus(event.StatusWaiting)) != 1 {
		t.Error("expected one waiting event")
	}
	last, _ := rec.Last()
	if last.Status != event.StatusDone || last.Authenticated == nil || !*last.Authenticated {
		t.Errorf("last event = %+v", last)
	}
}

func TestRun_StaleCredentialsDoNotCount(t *testing.T) {
	runner := &fakeRunner{content: validState, delay: 30 * time.Millisecond, stay: true}
	flow, rec, paths := newTestFlow(t, runner, 2*time.Second)

	if err := os.MkdirAll(paths.Dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.StorageFile, []byte(validState), 0600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(paths.StorageFile, old, old); err != nil {
		t.Fatal(err)
	}

	if _, err := flow.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The done event must come after the helper wrote, not on the first check
	var sawWaiting bool
	for _, e := range rec.Events() {
		if e.Status == event.StatusWaiting {
			sawWaiting = true
		}
		if e.Status == event.StatusDone && !sawWaiting {
			t.Error("done before waiting")
		}
	}
	if !modTime(paths.StorageFile).After(old) {
		t.Error("storage file should have been rewritten")
	}
}

func TestRun_HelperFails(t *testing.T) {
	runner := &fakeRunner{exitErr: fmt.Errorf("browser crashed")}
	flow, rec, _ := newTestFlow(t, runner, 2*time.Second)

	start := time.Now()
	_, err := flow.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second {
		t.Error("a failed helper should abort the wait, not exhaust the budget")
	}
	if !strings.Contains(err.Error(), "browser crashed") {
		t.Errorf("error = %v", err)
	}

	last, _ := rec.Last()
	if last.Status != event.StatusError || last.Authenticated == nil || *last.Authenticated {
		t.Errorf("last event = %+v", last)
	}
}

func TestRun_HelperExitsWithoutCredentials(t *testing.T) {
	flow, _, _ := newTestFlow(t, &fakeRunner{}, 2*time.Second)

	_, err := flow.Run(context.Background())
	if !errors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("error = %v, want not authenticated", err)
	}
}

func TestRun_InvalidCredentialsAbort(t *testing.T) {
	flow, _, _ := newTestFlow(t, &fakeRunner{content: `{"cookies":[]}`}, 2*time.Second)

	_, err := flow.Run(context.Background())
	if !errors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("error = %v, want not authenticated", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	flow, rec, _ := newTestFlow(t, &fakeRunner{delay: time.Hour}, 40*time.Millisecond)

	_, err := flow.Run(context.Background())
	if !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("error = %v, want timeout", err)
	}
	if errors.ExitCode(err) != errors.ExitTimeout {
		t.Errorf("ExitCode = %d", errors.ExitCode(err))
	}
	last, _ := rec.Last()
	if !strings.Contains(last.Message, "Login timeout") {
		t.Errorf("message = %q", last.Message)
	}
}

func TestRun_ProgressReports(t *testing.T) {
	runner := &fakeRunner{content: validState, delay: 80 * time.Millisecond, stay: true}
	flow, rec, _ := newTestFlow(t, runner, 2*time.Second)
	flow.opts.ProgressEvery = 20 * time.Millisecond

	if _, err := flow.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var reports int
	for _, e := range rec.WithStatus(event.StatusProgress) {
		if strings.HasPrefix(e.Message, "Waiting for login...") {
			reports++
		}
	}
	if reports == 0 {
		t.Error("expected periodic waiting reports")
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	flow, _, _ := newTestFlow(t, &fakeRunner{}, time.Second)
	flow.opts.Command = nil

	if _, err := flow.Run(context.Background()); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestStorageWatcher(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "storage_state.json")

	w, err := watchStorage(target)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte(validState), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Wake():
	case <-time.After(2 * time.Second):
		t.Fatal("no wake after writing the storage file")
	}

	w.Stop()
	w.Stop()
}

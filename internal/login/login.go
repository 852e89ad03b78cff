// Package login acquires browser credentials by running an external login
// helper and waiting for it to save a valid storage-state file.
//
// The helper owns the browser. This package only prepares the credential
// directories, starts the helper, watches for the storage file and restricts
// its permissions once it is valid.
package login

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/automeetsslide/decksidecar/internal/credentials"
	"github.com/automeetsslide/decksidecar/internal/errors"
	"github.com/automeetsslide/decksidecar/internal/event"
	"github.com/automeetsslide/decksidecar/internal/logging"
	"github.com/automeetsslide/decksidecar/internal/poll"
)

// Environment variables passed to the helper.
const (
	EnvStoragePath    = "DECKSIDECAR_STORAGE_PATH"
	EnvBrowserProfile = "DECKSIDECAR_BROWSER_PROFILE"
)

// DefaultProgressEvery is how often a progress event reports the wait.
const DefaultProgressEvery = 10 * time.Second

// Runner starts the login helper. The returned channel receives the helper's
// exit result exactly once.
type Runner interface {
	Start(ctx context.Context, argv []string, env []string) (<-chan error, error)
}

// execRunner runs the helper via os/exec. The helper's output goes to the
// given writer, never to stdout, which carries events.
type execRunner struct {
	output io.Writer
}

// Start launches argv and reports its exit on the returned channel.
func (r *execRunner) Start(ctx context.Context, argv []string, env []string) (<-chan error, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)

	var stderr bytes.Buffer
	cmd.Stdout = r.output
	cmd.Stderr = io.MultiWriter(r.output, &stderr)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		if err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				err = fmt.Errorf("%w: %s", err, msg)
			}
		}
		done <- err
	}()
	return done, nil
}

// Options configures a Flow.
type Options struct {
	Command       []string
	PollInterval  time.Duration
	Timeout       time.Duration
	ProgressEvery time.Duration
}

// Flow runs one login.
type Flow struct {
	store  *credentials.Store
	runner Runner
	events event.Publisher
	logger *logging.Logger
	opts   Options
}

// New creates a Flow that runs the helper with os/exec. A nil logger
// discards diagnostics.
func New(store *credentials.Store, events event.Publisher, logger *logging.Logger, opts Options) *Flow {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &Flow{
		store:  store,
		runner: &execRunner{output: os.Stderr},
		events: events,
		logger: logger,
		opts:   opts,
	}
}

// WithRunner replaces the helper runner.
func (f *Flow) WithRunner(r Runner) *Flow {
	f.runner = r
	return f
}

// Run performs the login and returns the storage file path. It succeeds once
// the storage file has been rewritten since the helper started and holds
// valid tokens. A helper that exits before that is a failure, as is running
// out of the login budget.
func (f *Flow) Run(ctx context.Context) (string, error) {
	if len(f.opts.Command) == 0 || f.opts.Command[0] == "" {
		return "", f.fail(errors.NewValidationError("login.command is empty").WithField("login.command"))
	}

	paths := f.store.Paths()
	if err := f.store.EnsureDirs(); err != nil {
		return "", f.fail(errors.NewJobError(errors.CategoryInternal, "prepare_credentials",
			"cannot create credential directories", err))
	}

	before := modTime(paths.StorageFile)

	watcher, err := watchStorage(paths.StorageFile)
	var wake <-chan struct{}
	if err != nil {
		f.logger.Warn("storage watch unavailable, relying on polling", "error", err.Error())
	} else {
		defer watcher.Stop()
		wake = watcher.Wake()
	}

	f.events.Publish(event.Progress("Opening browser for Google login..."))

	helperCtx, stopHelper := context.WithCancel(ctx)
	defer stopHelper()

	exited, err := f.runner.Start(helperCtx, f.opts.Command, []string{
		EnvStoragePath + "=" + paths.StorageFile,
		EnvBrowserProfile + "=" + paths.BrowserProfile,
	})
	if err != nil {
		return "", f.fail(errors.NewJobError(errors.CategoryInternal, "start_login_helper",
			fmt.Sprintf("cannot start login helper %q", f.opts.Command[0]), err))
	}
	f.logger.Info("login helper started", "command", strings.Join(f.opts.Command, " "))

	f.events.Publish(event.Waiting("Please complete Google login in the browser..."))

	var helperDone bool
	var helperErr error
	reported := time.Duration(0)

	_, err = poll.Until(ctx, poll.Options{
		Operation: "waiting for login",
		Interval:  f.opts.PollInterval,
		Timeout:   f.opts.Timeout,
		Wake:      wake,
		OnPending: func(elapsed time.Duration) {
			if elapsed-reported >= f.opts.ProgressEvery {
				reported = elapsed.Truncate(f.opts.ProgressEvery)
				f.events.Publish(event.Progress(fmt.Sprintf("Waiting for login... (%ds)", int(reported.Seconds()))))
			}
		},
	}, func(context.Context) (struct{}, poll.Outcome, error) {
		if !helperDone {
			select {
			case helperErr = <-exited:
				helperDone = true
			default:
			}
		}

		if modTime(paths.StorageFile).After(before) {
			if err := f.store.Check(); err == nil {
				return struct{}{}, poll.Settled, nil
			} else if helperDone {
				return struct{}{}, poll.Abort, err
			}
		}

		if helperDone {
			if helperErr != nil {
				return struct{}{}, poll.Abort, fmt.Errorf("login helper failed: %w", helperErr)
			}
			return struct{}{}, poll.Abort, fmt.Errorf("%w: login helper exited without saving credentials", errors.ErrNotAuthenticated)
		}
		return struct{}{}, poll.Pending, nil
	})
	if err != nil {
		category := errors.CategoryNotAuthenticated
		message := "Login failed"
		switch {
		case errors.Is(err, errors.ErrCanceled):
			category = errors.CategoryCanceled
			message = "Login canceled"
		case errors.Is(err, errors.ErrTimeout):
			category = errors.CategoryTimeout
			message = "Login timeout. Please try again."
		}
		return "", f.fail(errors.NewJobError(category, "login", message, err))
	}

	f.events.Publish(event.Progress("Login detected, saving authentication..."))
	if err := f.store.Secure(); err != nil {
		return "", f.fail(errors.NewJobError(errors.CategoryInternal, "secure_credentials",
			"cannot restrict storage file permissions", err))
	}

	f.logger.Info("login completed", "storage_file", paths.StorageFile)
	f.events.Publish(event.Done("Authentication saved to: "+paths.StorageFile, event.WithAuthenticated(true)))
	return paths.StorageFile, nil
}

func (f *Flow) fail(err error) error {
	f.logger.Error("login failed", "error", err.Error())
	f.events.Publish(event.FromError(err, event.WithAuthenticated(false)))
	return err
}

// modTime returns the file's modification time, or the zero time if it is absent.
func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

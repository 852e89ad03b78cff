package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automeetsslide/decksidecar/internal/credentials"
	"github.com/automeetsslide/decksidecar/internal/errors"
	"github.com/automeetsslide/decksidecar/internal/event"
	"github.com/automeetsslide/decksidecar/internal/login"
)

func (a *app) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in through the browser login helper",
		Long: `Run the configured login helper (login.command) and wait until it saves
the browser storage state. The helper receives the storage file path in
DECKSIDECAR_STORAGE_PATH and the browser profile in DECKSIDECAR_BROWSER_PROFILE.`,
		Args: usage(0, "login"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow := login.New(a.credentialStore(), a.bus, a.logger, login.Options{
				Command:      a.cfg.Login.Command,
				PollInterval: a.cfg.Timing.PollInterval,
				Timeout:      a.cfg.Timing.LoginTimeout,
			})
			if a.deps.LoginRunner != nil {
				flow.WithRunner(a.deps.LoginRunner)
			}
			_, err := flow.Run(cmd.Context())
			return err
		},
	}
}

func (a *app) checkAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-auth",
		Short: "Check whether saved credentials are present and valid",
		Args:  usage(0, "check-auth"),
		RunE: func(*cobra.Command, []string) error {
			return a.checkAuth()
		},
	}
}

func (a *app) checkAuth() error {
	store := a.credentialStore()
	path := store.Paths().StorageFile

	a.bus.Publish(event.Progress("Checking authentication..."))
	a.bus.Publish(event.Progress("Storage path: " + path))

	if !store.Exists() {
		err := errors.NewJobError(errors.CategoryNotAuthenticated, "check_auth",
			"Storage file not found: "+path, nil)
		a.bus.Publish(event.Failure(errors.CategoryNotAuthenticated, "Storage file not found: "+path,
			event.WithAuthenticated(false)))
		return err
	}

	a.bus.Publish(event.Progress("Storage file exists, validating tokens..."))

	tokens, err := store.Load()
	if err != nil {
		msg := "Authentication check failed: " + err.Error()
		a.bus.Publish(event.Failure(errors.CategoryNotAuthenticated, msg, event.WithAuthenticated(false)))
		return errors.NewJobError(errors.CategoryNotAuthenticated, "check_auth", "authentication check failed", err)
	}

	a.bus.Publish(event.Progress(fmt.Sprintf("Tokens loaded: csrf=%s, session=%s",
		credentials.Preview(tokens.CSRF, 10), credentials.Preview(tokens.SessionID, 10))))
	a.bus.Publish(event.Done("Authenticated", event.WithAuthenticated(true)))
	return nil
}

// Package cmd implements the decksidecar command surface.
//
// Every command writes its results to stdout as one JSON event per line and
// ends with exactly one terminal event. Diagnostics, help and usage text go
// to stderr.
package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/automeetsslide/decksidecar/internal/config"
	"github.com/automeetsslide/decksidecar/internal/credentials"
	"github.com/automeetsslide/decksidecar/internal/errors"
	"github.com/automeetsslide/decksidecar/internal/event"
	"github.com/automeetsslide/decksidecar/internal/logging"
	"github.com/automeetsslide/decksidecar/internal/login"
	"github.com/automeetsslide/decksidecar/internal/workspace"
)

// Dependencies are the parts of the outside world a command touches.
type Dependencies struct {
	Stdout io.Writer
	Stderr io.Writer
	// NewClient builds the workspace client once credentials are loaded.
	NewClient func(cfg *config.Config, tokens *credentials.Tokens) workspace.Client
	// LoginRunner replaces the os/exec login helper runner when set.
	LoginRunner login.Runner
}

// DefaultDependencies wires the real process streams and HTTP client.
func DefaultDependencies() Dependencies {
	return Dependencies{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		NewClient: func(cfg *config.Config, tokens *credentials.Tokens) workspace.Client {
			return workspace.NewHTTPClient(cfg.Workspace.BaseURL, tokens, cfg.Workspace.RequestTimeout)
		},
	}
}

// app is the state of one invocation.
type app struct {
	deps   Dependencies
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	runID  string

	// started is set once a command's own code runs; errors before that are
	// usage errors from argument parsing.
	started  bool
	terminal bool
}

// Execute runs the command line in os.Args with the real dependencies.
func Execute(ctx context.Context) error {
	return Run(ctx, DefaultDependencies(), os.Args[1:])
}

// Run executes one invocation with args. It always emits a terminal event;
// the returned error mirrors it.
func Run(ctx context.Context, deps Dependencies, args []string) error {
	a := &app{
		deps:   deps,
		logger: logging.NopLogger(),
		bus:    event.NewBus(),
		runID:  uuid.NewString(),
	}

	lines := event.NewLineWriter(deps.Stdout)
	a.bus.SubscribeAll(lines.Handle)
	markTerminal := func(event.Event) { a.terminal = true }
	a.bus.Subscribe(event.StatusDone, markTerminal)
	a.bus.Subscribe(event.StatusError, markTerminal)

	root := a.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	defer a.logger.Close()
	if err == nil {
		return nil
	}

	if !a.started && errors.CategoryOf(err) == errors.CategoryInternal {
		err = errors.NewValidationError(err.Error()).WithCause(err)
	}
	if !a.terminal {
		a.bus.Publish(event.FromError(err))
	}
	a.logger.Error("command failed", "error", err.Error(), "exit_code", errors.ExitCode(err))
	return err
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "decksidecar",
		Short: "Turn documents into slide decks through a remote notebook workspace",
		Long: `decksidecar drives a remote notebook workspace to build a slide deck from
documents and URLs, and reports progress as JSON lines on stdout.

Jobs started with --job-id can be recovered later with find-notebook,
check-status and download.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(*cobra.Command, []string) error {
			return errors.NewValidationError("No command provided. Use: login, check-auth, process, find-notebook, check-status, or download")
		},
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.deps.Stderr)
	root.SetErr(a.deps.Stderr)
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return errors.NewValidationError(err.Error() + "\nUsage: " + c.UseLine()).WithCause(err)
	})

	root.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/decksidecar/config.yaml)")

	root.AddCommand(
		a.loginCommand(),
		a.checkAuthCommand(),
		a.processCommand(),
		a.findNotebookCommand(),
		a.checkStatusCommand(),
		a.downloadCommand(),
		a.configCommand(),
	)
	return root
}

// setup loads configuration and the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.started = true

	cfgFile, _ := cmd.Flags().GetString("config")
	if err := initConfig(cfgFile); err != nil {
		return errors.NewValidationError("cannot read config file: " + err.Error()).WithCause(err)
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.NewValidationError("invalid configuration: " + err.Error()).WithCause(err)
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level, a.deps.Stderr)
	if err != nil {
		return errors.NewJobError(errors.CategoryInternal, "setup", "cannot open log", err)
	}
	a.logger = logger.WithRun(a.runID).WithCommand(cmd.Name())
	a.logger.Debug("command starting", "args", strings.Join(os.Args[1:], " "))
	return nil
}

func initConfig(cfgFile string) error {
	viper.Reset()
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.SetEnvPrefix("DECKSIDECAR")
	// e.g. DECKSIDECAR_TIMING_POLL_INTERVAL for timing.poll_interval
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

func (a *app) credentialStore() *credentials.Store {
	return credentials.NewStore(credentials.Paths{
		Dir:            a.cfg.Credentials.ResolveDir(),
		StorageFile:    a.cfg.Credentials.StoragePath(),
		BrowserProfile: a.cfg.Credentials.BrowserProfilePath(),
	})
}

// client loads credentials and builds the workspace client.
func (a *app) client() (workspace.Client, error) {
	tokens, err := a.credentialStore().Load()
	if err != nil {
		return nil, errors.NewJobError(errors.CategoryNotAuthenticated, "load_credentials",
			"Not authenticated. Run 'login' first.", err)
	}
	return a.deps.NewClient(a.cfg, tokens), nil
}

// usage returns a cobra.Args validator that turns a wrong argument count
// into a validation error carrying the usage line.
func usage(n int, line string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return errors.NewValidationError("Usage: " + line)
		}
		if len(args) > n {
			return errors.NewValidationError("unexpected arguments: " + strings.Join(args[n:], " ") + "\nUsage: " + line)
		}
		return nil
	}
}

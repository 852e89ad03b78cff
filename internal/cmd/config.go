package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/automeetsslide/decksidecar/internal/config"
)

// The config commands print plain text for humans and emit no events.
func (a *app) configCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View decksidecar configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as YAML",
		Args:  usage(0, "config show"),
		RunE: func(*cobra.Command, []string) error {
			return a.showConfig()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config file path",
		Args:  usage(0, "config path"),
		RunE: func(*cobra.Command, []string) error {
			out := a.deps.Stdout
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "Active config: %s\n", used)
			} else {
				fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
			}
			fmt.Fprintln(out, "Environment variables: DECKSIDECAR_* (e.g., DECKSIDECAR_TIMING_POLL_INTERVAL)")
			return nil
		},
	})

	return configCmd
}

func (a *app) showConfig() error {
	out := a.deps.Stdout

	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# Config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(displayConfig(a.cfg))
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// configView mirrors config.Config with durations rendered as strings.
type configView struct {
	Workspace struct {
		BaseURL        string `yaml:"base_url"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"workspace"`
	Credentials config.CredentialsConfig `yaml:"credentials"`
	Timing      struct {
		PollInterval       string `yaml:"poll_interval"`
		SourceReadyTimeout string `yaml:"source_ready_timeout"`
		GenerationTimeout  string `yaml:"generation_timeout"`
		LoginTimeout       string `yaml:"login_timeout"`
	} `yaml:"timing"`
	Generation config.GenerationConfig `yaml:"generation"`
	Login      config.LoginConfig      `yaml:"login"`
	Logging    config.LoggingConfig    `yaml:"logging"`
}

func displayConfig(cfg *config.Config) configView {
	var v configView
	v.Workspace.BaseURL = cfg.Workspace.BaseURL
	v.Workspace.RequestTimeout = cfg.Workspace.RequestTimeout.String()
	v.Credentials = cfg.Credentials
	v.Timing.PollInterval = cfg.Timing.PollInterval.String()
	v.Timing.SourceReadyTimeout = cfg.Timing.SourceReadyTimeout.String()
	v.Timing.GenerationTimeout = cfg.Timing.GenerationTimeout.String()
	v.Timing.LoginTimeout = cfg.Timing.LoginTimeout.String()
	v.Generation = cfg.Generation
	v.Login = cfg.Login
	v.Logging = cfg.Logging
	return v
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultInstructions is sent with a generation request when the caller does
// not supply --system-prompt.
const DefaultInstructions = "この内容から包括的なスライドデッキを日本語で作成してください。"

// Config represents the complete sidecar configuration
type Config struct {
	Workspace   WorkspaceConfig   `mapstructure:"workspace" yaml:"workspace"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Timing      TimingConfig      `mapstructure:"timing" yaml:"timing"`
	Generation  GenerationConfig  `mapstructure:"generation" yaml:"generation"`
	Login       LoginConfig       `mapstructure:"login" yaml:"login"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// WorkspaceConfig controls how the remote workspace service is reached
type WorkspaceConfig struct {
	// BaseURL is the root of the workspace REST API
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// RequestTimeout bounds every individual HTTP request (uploads and downloads included)
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// CredentialsConfig locates the saved authentication material.
// The sidecar reads these paths; only login writes them.
type CredentialsConfig struct {
	// Dir holds the storage file and the browser profile. A leading ~ is expanded.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// StorageFile is the storage-state file name, relative to Dir unless absolute
	StorageFile string `mapstructure:"storage_file" yaml:"storage_file"`
	// BrowserProfileDir is the persistent browser profile, relative to Dir unless absolute
	BrowserProfileDir string `mapstructure:"browser_profile_dir" yaml:"browser_profile_dir"`
}

// TimingConfig holds the polling interval and the per-phase wait budgets
type TimingConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SourceReadyTimeout time.Duration `mapstructure:"source_ready_timeout" yaml:"source_ready_timeout"`
	GenerationTimeout  time.Duration `mapstructure:"generation_timeout" yaml:"generation_timeout"`
	LoginTimeout       time.Duration `mapstructure:"login_timeout" yaml:"login_timeout"`
}

// GenerationConfig controls notebook naming, instructions and output naming
type GenerationConfig struct {
	DefaultInstructions string `mapstructure:"default_instructions" yaml:"default_instructions"`
	TitlePrefix         string `mapstructure:"title_prefix" yaml:"title_prefix"`
	OutputSuffix        string `mapstructure:"output_suffix" yaml:"output_suffix"`
}

// LoginConfig configures the external browser-login helper
type LoginConfig struct {
	// Command is the helper argv. It must write the storage file before exiting
	// or while it keeps running.
	Command []string `mapstructure:"command" yaml:"command"`
}

// LoggingConfig controls diagnostic logging (never written to stdout)
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// Dir, when set, receives decksidecar.log instead of stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			BaseURL:        "https://notebooklm.google.com/api",
			RequestTimeout: 60 * time.Second,
		},
		Credentials: CredentialsConfig{
			Dir:               "~/.notebooklm",
			StorageFile:       "storage_state.json",
			BrowserProfileDir: "browser_profile",
		},
		Timing: TimingConfig{
			PollInterval:       2 * time.Second,
			SourceReadyTimeout: 300 * time.Second,  // 5 minutes; audio sources are slow
			GenerationTimeout:  1800 * time.Second, // 30 minutes
			LoginTimeout:       300 * time.Second,
		},
		Generation: GenerationConfig{
			DefaultInstructions: DefaultInstructions,
			TitlePrefix:         "Auto Slide: ",
			OutputSuffix:        "_slides.pdf",
		},
		Login: LoginConfig{
			Command: []string{"notebooklm", "login"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Workspace defaults
	viper.SetDefault("workspace.base_url", defaults.Workspace.BaseURL)
	viper.SetDefault("workspace.request_timeout", defaults.Workspace.RequestTimeout)

	// Credential defaults
	viper.SetDefault("credentials.dir", defaults.Credentials.Dir)
	viper.SetDefault("credentials.storage_file", defaults.Credentials.StorageFile)
	viper.SetDefault("credentials.browser_profile_dir", defaults.Credentials.BrowserProfileDir)

	// Timing defaults
	viper.SetDefault("timing.poll_interval", defaults.Timing.PollInterval)
	viper.SetDefault("timing.source_ready_timeout", defaults.Timing.SourceReadyTimeout)
	viper.SetDefault("timing.generation_timeout", defaults.Timing.GenerationTimeout)
	viper.SetDefault("timing.login_timeout", defaults.Timing.LoginTimeout)

	// Generation defaults
	viper.SetDefault("generation.default_instructions", defaults.Generation.DefaultInstructions)
	viper.SetDefault("generation.title_prefix", defaults.Generation.TitlePrefix)
	viper.SetDefault("generation.output_suffix", defaults.Generation.OutputSuffix)

	// Login defaults
	viper.SetDefault("login.command", defaults.Login.Command)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ResolveDir returns the credential directory with a leading ~ expanded.
func (c *CredentialsConfig) ResolveDir() string {
	return expandHome(c.Dir)
}

// StoragePath returns the absolute location of the storage-state file.
func (c *CredentialsConfig) StoragePath() string {
	return resolveUnder(c.ResolveDir(), c.StorageFile)
}

// BrowserProfilePath returns the absolute location of the browser profile directory.
func (c *CredentialsConfig) BrowserProfilePath() string {
	return resolveUnder(c.ResolveDir(), c.BrowserProfileDir)
}

func resolveUnder(baseDir, path string) string {
	path = expandHome(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "decksidecar")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".decksidecar"
	}
	return filepath.Join(home, ".config", "decksidecar")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Wait budgets
	if cfg.Timing.SourceReadyTimeout != 300*time.Second {
		t.Errorf("Timing.SourceReadyTimeout = %v, want 300s", cfg.Timing.SourceReadyTimeout)
	}
	if cfg.Timing.GenerationTimeout != 1800*time.Second {
		t.Errorf("Timing.GenerationTimeout = %v, want 1800s", cfg.Timing.GenerationTimeout)
	}
	if cfg.Timing.LoginTimeout != 300*time.Second {
		t.Errorf("Timing.LoginTimeout = %v, want 300s", cfg.Timing.LoginTimeout)
	}
	if cfg.Timing.PollInterval != 2*time.Second {
		t.Errorf("Timing.PollInterval = %v, want 2s", cfg.Timing.PollInterval)
	}

	// Naming
	if cfg.Generation.TitlePrefix != "Auto Slide: " {
		t.Errorf("Generation.TitlePrefix = %q", cfg.Generation.TitlePrefix)
	}
	if cfg.Generation.OutputSuffix != "_slides.pdf" {
		t.Errorf("Generation.OutputSuffix = %q", cfg.Generation.OutputSuffix)
	}
	if cfg.Generation.DefaultInstructions != DefaultInstructions {
		t.Errorf("Generation.DefaultInstructions = %q", cfg.Generation.DefaultInstructions)
	}

	if cfg.Credentials.StorageFile != "storage_state.json" {
		t.Errorf("Credentials.StorageFile = %q", cfg.Credentials.StorageFile)
	}
}

func TestCredentialsConfig_Paths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	t.Run("expands home and joins relative names", func(t *testing.T) {
		c := CredentialsConfig{Dir: "~/.notebooklm", StorageFile: "storage_state.json", BrowserProfileDir: "browser_profile"}

		if got, want := c.ResolveDir(), filepath.Join(home, ".notebooklm"); got != want {
			t.Errorf("ResolveDir() = %q, want %q", got, want)
		}
		if got, want := c.StoragePath(), filepath.Join(home, ".notebooklm", "storage_state.json"); got != want {
			t.Errorf("StoragePath() = %q, want %q", got, want)
		}
		if got, want := c.BrowserProfilePath(), filepath.Join(home, ".notebooklm", "browser_profile"); got != want {
			t.Errorf("BrowserProfilePath() = %q, want %q", got, want)
		}
	})

	t.Run("absolute file stays put", func(t *testing.T) {
		c := CredentialsConfig{Dir: "/srv/creds", StorageFile: "/etc/state.json"}
		if got := c.StoragePath(); got != "/etc/state.json" {
			t.Errorf("StoragePath() = %q, want /etc/state.json", got)
		}
	})
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := ConfigDir(); got != "/custom/config/decksidecar" {
			t.Errorf("ConfigDir() = %q, want %q", got, "/custom/config/decksidecar")
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "decksidecar")
		if got := ConfigDir(); got != expected {
			t.Errorf("ConfigDir() = %q, want %q", got, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got := ConfigFile(); got != "/custom/config/decksidecar/config.yaml" {
		t.Errorf("ConfigFile() = %q", got)
	}
}

func TestLoad(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("defaults load and validate", func(t *testing.T) {
		viper.Reset()
		SetDefaults()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Timing.GenerationTimeout != 30*time.Minute {
			t.Errorf("GenerationTimeout = %v, want 30m", cfg.Timing.GenerationTimeout)
		}
		if len(cfg.Login.Command) != 2 {
			t.Errorf("Login.Command = %v", cfg.Login.Command)
		}
	})

	t.Run("duration strings from a config file", func(t *testing.T) {
		viper.Reset()
		SetDefaults()

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "timing:\n  poll_interval: 500ms\n  generation_timeout: 45m\nworkspace:\n  base_url: http://localhost:8080\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			t.Fatalf("ReadInConfig() error = %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Timing.PollInterval != 500*time.Millisecond {
			t.Errorf("PollInterval = %v, want 500ms", cfg.Timing.PollInterval)
		}
		if cfg.Timing.GenerationTimeout != 45*time.Minute {
			t.Errorf("GenerationTimeout = %v, want 45m", cfg.Timing.GenerationTimeout)
		}
		if cfg.Workspace.BaseURL != "http://localhost:8080" {
			t.Errorf("BaseURL = %q", cfg.Workspace.BaseURL)
		}
		// untouched keys keep defaults
		if cfg.Timing.SourceReadyTimeout != 5*time.Minute {
			t.Errorf("SourceReadyTimeout = %v, want 5m", cfg.Timing.SourceReadyTimeout)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		viper.Reset()
		SetDefaults()
		viper.Set("logging.level", "loud")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() expected error for invalid log level")
		}
		if _, ok := err.(ValidationErrors); !ok {
			t.Errorf("Load() error type = %T, want ValidationErrors", err)
		}
	})
}

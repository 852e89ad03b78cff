package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "timing.poll_interval")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateWorkspace()...)
	errors = append(errors, c.validateCredentials()...)
	errors = append(errors, c.validateTiming()...)
	errors = append(errors, c.validateGeneration()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateWorkspace() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.Workspace.BaseURL)
	if c.Workspace.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "workspace.base_url",
			Value:   c.Workspace.BaseURL,
			Message: "must be an absolute http or https URL",
		})
	}

	if c.Workspace.RequestTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "workspace.request_timeout",
			Value:   c.Workspace.RequestTimeout,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateCredentials() []ValidationError {
	var errors []ValidationError

	if c.Credentials.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "credentials.dir",
			Value:   c.Credentials.Dir,
			Message: "must not be empty",
		})
	}
	if c.Credentials.StorageFile == "" {
		errors = append(errors, ValidationError{
			Field:   "credentials.storage_file",
			Value:   c.Credentials.StorageFile,
			Message: "must not be empty",
		})
	}

	return errors
}

// validateTiming validates the TimingConfig
func (c *Config) validateTiming() []ValidationError {
	var errors []ValidationError

	durations := []struct {
		field string
		value time.Duration
	}{
		{"timing.poll_interval", c.Timing.PollInterval},
		{"timing.source_ready_timeout", c.Timing.SourceReadyTimeout},
		{"timing.generation_timeout", c.Timing.GenerationTimeout},
		{"timing.login_timeout", c.Timing.LoginTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: "must be positive",
			})
		}
	}

	// A poll interval longer than a budget would allow only a single check
	if c.Timing.PollInterval > 0 && c.Timing.SourceReadyTimeout > 0 && c.Timing.PollInterval > c.Timing.SourceReadyTimeout {
		errors = append(errors, ValidationError{
			Field:   "timing.poll_interval",
			Value:   c.Timing.PollInterval,
			Message: "must not exceed timing.source_ready_timeout",
		})
	}

	return errors
}

func (c *Config) validateGeneration() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Generation.DefaultInstructions) == "" {
		errors = append(errors, ValidationError{
			Field:   "generation.default_instructions",
			Value:   c.Generation.DefaultInstructions,
			Message: "must not be empty",
		})
	}
	if c.Generation.OutputSuffix == "" {
		errors = append(errors, ValidationError{
			Field:   "generation.output_suffix",
			Value:   c.Generation.OutputSuffix,
			Message: "must not be empty",
		})
	}
	if strings.ContainsRune(c.Generation.OutputSuffix, '/') {
		errors = append(errors, ValidationError{
			Field:   "generation.output_suffix",
			Value:   c.Generation.OutputSuffix,
			Message: "must not contain a path separator",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

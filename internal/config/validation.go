package config

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value interface{}) {
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Watch.Group) == "" {
		errs.Add("watch.group", "is required", c.Watch.Group)
	}
	if strings.TrimSpace(c.Watch.Version) == "" {
		errs.Add("watch.version", "is required", c.Watch.Version)
	}
	if c.Watch.TimeoutSeconds <= 0 {
		errs.Add("watch.timeoutSeconds", "must be positive", c.Watch.TimeoutSeconds)
	}
	if c.Watch.PollInterval < 0 {
		errs.Add("watch.pollInterval", "must not be negative", c.Watch.PollInterval)
	}
	if strings.TrimSpace(c.Renderer.Command) == "" {
		errs.Add("renderer.command", "is required", c.Renderer.Command)
	}
	requireDir(&errs, "renderer.workDir", c.Renderer.WorkDir)
	requireDir(&errs, "renderer.sourceLibraryDir", c.Renderer.SourceLibraryDir)
	if strings.ContainsRune(c.Renderer.PluginConfigFile, '/') {
		errs.Add("renderer.pluginConfigFile", "must be a file name, not a path", c.Renderer.PluginConfigFile)
	}

	switch c.Executor.Mode {
	case ExecutorModeAPI:
	case ExecutorModeCLI:
		if strings.TrimSpace(c.Executor.Binary) == "" {
			errs.Add("executor.binary", "is required in cli mode", c.Executor.Binary)
		}
	default:
		errs.Add("executor.mode", fmt.Sprintf("must be one of: %s, %s", ExecutorModeAPI, ExecutorModeCLI), c.Executor.Mode)
	}

	if c.Reconcile.Parallelism < 1 {
		errs.Add("reconcile.parallelism", "must be at least 1", c.Reconcile.Parallelism)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs.Add("logLevel", "must be one of: debug, info, warn, error", c.LogLevel)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// requireDir reports an empty directory and one the generator's whitespace
// separated arguments cannot carry.
func requireDir(errs *ValidationErrors, field, value string) {
	switch {
	case strings.TrimSpace(value) == "":
		errs.Add(field, "is required", value)
	case strings.ContainsFunc(value, unicode.IsSpace):
		errs.Add(field, "must not contain whitespace", value)
	}
}

package configloader

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/pkg/config"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Field is the path to the invalid field (e.g., "cache.shards").
	Field string

	// Value is the invalid value.
	Value any

	// Message describes the validation error.
	Message string

	// FilePath is the config file containing the error (if known).
	FilePath string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, ": ")
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	// Errors are validation failures that prevent loading.
	Errors []ValidationError

	// Warnings are non-fatal issues.
	Warnings []ValidationError
}

// Valid returns true if there are no errors.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err combines every error into one, or returns nil when valid.
func (r *ValidationResult) Err() error {
	var result *multierror.Error
	for i := range r.Errors {
		result = multierror.Append(result, &r.Errors[i])
	}
	return result.ErrorOrNil()
}

// AllMessages returns all error and warning messages combined.
func (r *ValidationResult) AllMessages() []string {
	messages := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, e := range r.Errors {
		messages = append(messages, "error: "+e.Error())
	}
	for _, w := range r.Warnings {
		messages = append(messages, "warning: "+w.Error())
	}
	return messages
}

func (r *ValidationResult) fail(field string, value any, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warn(field string, value any, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a merged configuration for errors and warnings.
func Validate(cfg *config.Config) *ValidationResult {
	result := &ValidationResult{}
	if cfg == nil {
		return result
	}

	if cfg.Format != "" && !cfg.Format.IsValid() {
		result.fail("format", cfg.Format, "invalid format %q", cfg.Format)
	}
	if cfg.LogLevel != "" && !logging.ValidLevel(cfg.LogLevel) {
		result.fail("log_level", cfg.LogLevel, "invalid log level %q; must be one of: debug, info, warn, error", cfg.LogLevel)
	}
	if cfg.Color != "" && !cfg.Color.IsValid() {
		result.fail("color", cfg.Color, "invalid color mode %q; must be one of: auto, always, never", cfg.Color)
	}
	if cfg.Jobs < 0 {
		result.fail("jobs", cfg.Jobs, "jobs must be >= 0 (0 means one per CPU)")
	}

	if cfg.Parser.MaxDepth < 1 {
		result.fail("parser.max_depth", cfg.Parser.MaxDepth, "must be at least 1")
	}
	if cfg.Parser.MaxHeredocs < 1 {
		result.fail("parser.max_heredocs", cfg.Parser.MaxHeredocs, "must be at least 1")
	}

	if cfg.Cache.MaxEntries < 1 {
		result.fail("cache.max_entries", cfg.Cache.MaxEntries, "must be at least 1")
	}
	if cfg.Cache.Shards < 1 {
		result.fail("cache.shards", cfg.Cache.Shards, "must be at least 1")
	}
	if cfg.Cache.TTL < 0 {
		result.fail("cache.ttl", cfg.Cache.TTL, "must not be negative (0 disables expiry)")
	}
	if cfg.Cache.Shards > cfg.Cache.MaxEntries && cfg.Cache.MaxEntries > 0 {
		result.warn("cache.shards", cfg.Cache.Shards,
			"more shards than entries; only %d shards will be used", cfg.Cache.MaxEntries)
	}

	validateFiles(cfg.Files, result)
	return result
}

func validateFiles(files config.FilesConfig, result *ValidationResult) {
	if len(files.Extensions) == 0 && !files.ShebangDetection() {
		result.warn("files.extensions", nil, "no extensions and shebang detection off; only explicit files are parsed")
	}
	for i, ext := range files.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			result.fail(fmt.Sprintf("files.extensions[%d]", i), ext, "extension %q must start with a dot", ext)
		}
	}
	for i, pattern := range files.Include {
		if !doublestar.ValidatePattern(pattern) {
			result.fail(fmt.Sprintf("files.include[%d]", i), pattern, "invalid glob pattern %q", pattern)
		}
	}
	for i, pattern := range files.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			result.fail(fmt.Sprintf("files.exclude[%d]", i), pattern, "invalid glob pattern %q", pattern)
		}
	}
}

// ValidateWithFile validates configuration and includes file path in errors.
func ValidateWithFile(cfg *config.Config, filePath string) *ValidationResult {
	result := Validate(cfg)
	for i := range result.Errors {
		result.Errors[i].FilePath = filePath
	}
	for i := range result.Warnings {
		result.Warnings[i].FilePath = filePath
	}
	return result
}

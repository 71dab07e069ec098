// Package logging wraps charmbracelet/log with the defaults perlparse
// uses everywhere: a stderr logger, a process-wide default and a logger
// carried on context.Context.
package logging

// Keys for structured log fields.
const (
	FieldError   = "error"
	FieldErrors  = "errors"
	FieldPath    = "path"
	FieldPaths   = "paths"
	FieldFiles   = "files"
	FieldFormat  = "format"
	FieldConfig  = "config"
	FieldJobs    = "jobs"
	FieldSource  = "source"
	FieldElapsed = "elapsed"

	// Parsing.
	FieldTokens   = "tokens"
	FieldHeredocs = "heredocs"
	FieldOffset   = "offset"
	FieldDepth    = "depth"

	// Sessions and caching.
	FieldSession   = "session"
	FieldVersion   = "version"
	FieldReused    = "reused"
	FieldDocuments = "documents"
	FieldCacheHits = "cache_hits"
	FieldEvent     = "event"

	// Runner statistics.
	FieldFilesDiscovered = "files_discovered"
	FieldFilesParsed     = "files_parsed"
	FieldFilesWithErrors = "files_with_errors"
	FieldErrorsTotal     = "errors_total"

	// Build information.
	FieldCommit = "commit"
	FieldBuilt  = "built"
)

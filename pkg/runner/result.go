package runner

import (
	"time"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// FileOutcome is the result of parsing one file.
type FileOutcome struct {
	// Path is the absolute path of the file.
	Path string

	// RelPath is Path relative to the working directory when possible.
	RelPath string

	// Snapshot is the parse result. Nil when the file could not be read.
	Snapshot *syntax.Snapshot

	// Error is set if the file could not be read.
	Error error

	// Elapsed is the time spent reading and parsing the file.
	Elapsed time.Duration
}

// DisplayPath returns RelPath, falling back to Path.
func (o FileOutcome) DisplayPath() string {
	if o.RelPath != "" {
		return o.RelPath
	}
	return o.Path
}

// ParseErrors returns the recovered parse errors for the file.
func (o FileOutcome) ParseErrors() []*syntax.Error {
	if o.Snapshot == nil {
		return nil
	}
	return o.Snapshot.Errors
}

// Stats captures aggregate information about a run.
type Stats struct {
	// FilesDiscovered is the total number of files found during discovery.
	FilesDiscovered int

	// FilesParsed is the number of files read and parsed.
	FilesParsed int

	// FilesFailed is the number of files that could not be read.
	FilesFailed int

	// FilesWithErrors is the number of parsed files with at least one
	// parse error.
	FilesWithErrors int

	// ErrorsTotal is the number of parse errors across all files.
	ErrorsTotal int

	// ErrorsByKind maps error kind names to counts.
	ErrorsByKind map[string]int

	// Tokens and Heredocs count what the parsed files contained.
	Tokens   int
	Heredocs int
}

// Result is the overall runner result.
type Result struct {
	// Files are ordered by path.
	Files []FileOutcome

	// Stats contains aggregate statistics for the run.
	Stats Stats
}

// HasFailures reports whether any file could not be read.
func (r *Result) HasFailures() bool {
	if r == nil {
		return false
	}
	return r.Stats.FilesFailed > 0
}

// HasParseErrors reports whether any file had parse errors.
func (r *Result) HasParseErrors() bool {
	if r == nil {
		return false
	}
	return r.Stats.ErrorsTotal > 0
}

func newStats() Stats {
	return Stats{ErrorsByKind: make(map[string]int)}
}

func (r *Result) accumulate(outcome FileOutcome) {
	r.Files = append(r.Files, outcome)

	if outcome.Error != nil {
		r.Stats.FilesFailed++
		return
	}
	if outcome.Snapshot == nil {
		return
	}

	r.Stats.FilesParsed++
	r.Stats.Tokens += len(outcome.Snapshot.Tokens)
	r.Stats.Heredocs += len(outcome.Snapshot.Heredocs)

	errs := outcome.Snapshot.Errors
	if len(errs) > 0 {
		r.Stats.FilesWithErrors++
	}
	r.Stats.ErrorsTotal += len(errs)
	for _, err := range errs {
		r.Stats.ErrorsByKind[err.Kind.String()]++
	}
}

// Package runner parses many Perl files concurrently.
package runner

import (
	"github.com/spf13/afero"

	"github.com/yaklabco/perlparse/pkg/config"
	"github.com/yaklabco/perlparse/pkg/parser"
)

// Options controls a multi-file run.
type Options struct {
	// Paths are the user-specified paths (files or directories) to process.
	// If empty, defaults to the working directory.
	Paths []string

	// WorkingDir is the base directory used to resolve relative Paths.
	// If empty, the current process working directory is used.
	WorkingDir string

	// Fs is the filesystem to read. Defaults to the OS filesystem.
	Fs afero.Fs

	// Extensions is the set of file extensions (with leading dot) treated
	// as Perl. Defaults to config.DefaultExtensions().
	Extensions []string

	// IncludeGlobs restrict discovery to matching paths, relative to
	// WorkingDir. Empty means everything with a Perl extension.
	IncludeGlobs []string

	// ExcludeGlobs skip matching files and directories.
	ExcludeGlobs []string

	// DetectShebang also accepts extensionless files whose first line
	// runs perl.
	DetectShebang bool

	// Jobs controls the maximum number of concurrent workers.
	// 0 or negative means runtime.NumCPU().
	Jobs int

	// ParserOptions are passed to every parse.
	ParserOptions []parser.Option
}

// OptionsFromConfig builds run options for paths from a resolved
// configuration.
func OptionsFromConfig(cfg *config.Config, paths []string) Options {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Options{
		Paths:         paths,
		Extensions:    cfg.Files.Extensions,
		IncludeGlobs:  cfg.Files.Include,
		ExcludeGlobs:  cfg.Files.Exclude,
		DetectShebang: cfg.Files.ShebangDetection(),
		Jobs:          cfg.Jobs,
		ParserOptions: ParserOptions(cfg),
	}
}

// ParserOptions converts the parser section of cfg.
func ParserOptions(cfg *config.Config) []parser.Option {
	if cfg == nil {
		return nil
	}
	return []parser.Option{
		parser.WithMaxDepth(cfg.Parser.MaxDepth),
		parser.WithMaxHeredocs(cfg.Parser.MaxHeredocs),
	}
}

func (o Options) effectiveExtensions() []string {
	if len(o.Extensions) == 0 {
		return config.DefaultExtensions()
	}
	return o.Extensions
}

func (o Options) effectivePaths() []string {
	if len(o.Paths) == 0 {
		return []string{"."}
	}
	return o.Paths
}

func (o Options) effectiveFs() afero.Fs {
	if o.Fs == nil {
		return afero.NewOsFs()
	}
	return o.Fs
}

// Package config defines perlparse's configuration types.
// These are plain data structures; discovery, merging and validation live
// in internal/configloader.
package config

import "time"

// Defaults applied by NewConfig.
const (
	DefaultMaxDepth        = 5000
	DefaultMaxHeredocs     = 100
	DefaultCacheMaxEntries = 100
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheShards     = 16
	DefaultLogLevel        = "info"
)

// ParserConfig bounds the work a single parse may do.
type ParserConfig struct {
	// MaxDepth is the deepest block or expression nesting accepted.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth,omitempty"`

	// MaxHeredocs is the number of heredoc declarations accepted per file.
	MaxHeredocs int `mapstructure:"max_heredocs" yaml:"max_heredocs,omitempty"`
}

// CacheConfig sizes the content-addressed snapshot cache.
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries" yaml:"max_entries,omitempty"`
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`
	Shards     int           `mapstructure:"shards" yaml:"shards,omitempty"`
}

// FilesConfig selects the files the runner parses.
type FilesConfig struct {
	// Extensions are matched case-insensitively, with the leading dot.
	Extensions []string `mapstructure:"extensions" yaml:"extensions,omitempty"`

	// Include and Exclude are doublestar globs relative to each root.
	Include []string `mapstructure:"include" yaml:"include,omitempty"`
	Exclude []string `mapstructure:"exclude" yaml:"exclude,omitempty"`

	// DetectShebang also accepts extensionless files with a perl shebang.
	DetectShebang *bool `mapstructure:"detect_shebang" yaml:"detect_shebang,omitempty"`
}

// ShebangDetection reports whether DetectShebang is set, defaulting to true.
func (f FilesConfig) ShebangDetection() bool {
	return f.DetectShebang == nil || *f.DetectShebang
}

// Config is the root configuration structure for perlparse.
type Config struct {
	Parser ParserConfig `mapstructure:"parser" yaml:"parser,omitempty"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache,omitempty"`
	Files  FilesConfig  `mapstructure:"files" yaml:"files,omitempty"`

	// Jobs is the number of parallel workers; 0 means one per CPU.
	Jobs int `mapstructure:"jobs" yaml:"jobs,omitempty"`

	// Format is the output format.
	Format OutputFormat `mapstructure:"format" yaml:"format,omitempty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty"`

	// CLI-level options (not persisted to config files).

	// Color controls styled output.
	Color ColorMode `mapstructure:"-" yaml:"-"`

	// Debug forces debug logging.
	Debug bool `mapstructure:"-" yaml:"-"`
}

// DefaultExtensions are the file extensions treated as Perl source.
func DefaultExtensions() []string {
	return []string{".pl", ".pm", ".t", ".psgi", ".cgi"}
}

// NewConfig returns a Config with sensible defaults.
func NewConfig() *Config {
	detect := true
	return &Config{
		Parser: ParserConfig{
			MaxDepth:    DefaultMaxDepth,
			MaxHeredocs: DefaultMaxHeredocs,
		},
		Cache: CacheConfig{
			MaxEntries: DefaultCacheMaxEntries,
			TTL:        DefaultCacheTTL,
			Shards:     DefaultCacheShards,
		},
		Files: FilesConfig{
			Extensions:    DefaultExtensions(),
			DetectShebang: &detect,
		},
		Jobs:     0,
		Format:   FormatText,
		LogLevel: DefaultLogLevel,
		Color:    ColorAuto,
	}
}

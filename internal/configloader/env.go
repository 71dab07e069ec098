package configloader

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/yaklabco/perlparse/pkg/config"
)

// envVarPrefix is the prefix for all perlparse environment variables.
const envVarPrefix = "PERLPARSE_"

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

type envSetter struct {
	description string
	apply       func(cfg *config.Config, value string) error
}

//nolint:gochecknoglobals // Read-only lookup table.
var envSetters = map[string]envSetter{
	"FORMAT": {"Output format: text, json, yaml, cbor or sexp", func(cfg *config.Config, v string) error {
		cfg.Format = config.OutputFormat(strings.ToLower(v))
		return nil
	}},
	"LOG_LEVEL": {"Log level: debug, info, warn or error", func(cfg *config.Config, v string) error {
		cfg.LogLevel = v
		return nil
	}},
	"JOBS": {"Number of parallel workers (0 = one per CPU)", intSetter(func(cfg *config.Config, n int) { cfg.Jobs = n })},
	"MAX_DEPTH": {"Deepest nesting a parse accepts", intSetter(func(cfg *config.Config, n int) {
		cfg.Parser.MaxDepth = n
	})},
	"MAX_HEREDOCS": {"Heredoc declarations accepted per file", intSetter(func(cfg *config.Config, n int) {
		cfg.Parser.MaxHeredocs = n
	})},
	"CACHE_MAX_ENTRIES": {"Snapshot cache capacity", intSetter(func(cfg *config.Config, n int) {
		cfg.Cache.MaxEntries = n
	})},
	"CACHE_SHARDS": {"Snapshot cache shard count", intSetter(func(cfg *config.Config, n int) {
		cfg.Cache.Shards = n
	})},
	"CACHE_TTL": {"Snapshot cache idle expiry, e.g. 5m", func(cfg *config.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q", v)
		}
		cfg.Cache.TTL = d
		return nil
	}},
	"EXTENSIONS": {"Comma-separated file extensions", func(cfg *config.Config, v string) error {
		cfg.Files.Extensions = parseSliceValue(v)
		return nil
	}},
	"INCLUDE": {"Comma-separated include globs", func(cfg *config.Config, v string) error {
		cfg.Files.Include = parseSliceValue(v)
		return nil
	}},
	"EXCLUDE": {"Comma-separated exclude globs", func(cfg *config.Config, v string) error {
		cfg.Files.Exclude = parseSliceValue(v)
		return nil
	}},
	"DETECT_SHEBANG": {"Parse extensionless perl scripts: true or false", func(cfg *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q (expected true/false/1/0)", v)
		}
		cfg.Files.DetectShebang = &b
		return nil
	}},
}

func intSetter(set func(cfg *config.Config, n int)) func(*config.Config, string) error {
	return func(cfg *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		set(cfg, n)
		return nil
	}
}

// LoadFromEnv applies PERLPARSE_* overrides from the process environment.
func LoadFromEnv(cfg *config.Config) error {
	return loadFromEnv(cfg, os.LookupEnv)
}

// loadFromEnv applies every set variable and reports all bad values
// together.
func loadFromEnv(cfg *config.Config, lookup LookupFunc) error {
	if cfg == nil {
		return nil
	}

	var result *multierror.Error
	for _, suffix := range envSuffixes() {
		name := envVarPrefix + suffix
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		if err := envSetters[suffix].apply(cfg, value); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}

func envSuffixes() []string {
	suffixes := make([]string, 0, len(envSetters))
	for suffix := range envSetters {
		suffixes = append(suffixes, suffix)
	}
	sort.Strings(suffixes)
	return suffixes
}

// parseSliceValue parses a comma-separated string into a slice.
// Each element is trimmed of whitespace.
func parseSliceValue(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ListEnvVars returns every supported environment variable with its
// description.
func ListEnvVars() map[string]string {
	out := make(map[string]string, len(envSetters))
	for suffix, setter := range envSetters {
		out[envVarPrefix+suffix] = setter.description
	}
	return out
}

package config

import (
	"fmt"
	"strings"
)

// DefaultTemplateHeader returns the header written at the top of
// generated configuration files.
func DefaultTemplateHeader() string {
	return `# perlparse configuration
# See: https://github.com/yaklabco/perlparse`
}

// GenerateTemplate renders a commented project configuration holding
// the defaults. With full set, every key is written; otherwise the
// optional ones are commented out.
func GenerateTemplate(full bool) []byte {
	d := NewConfig()
	opt := "# "
	if full {
		opt = ""
	}

	var b strings.Builder
	b.WriteString(DefaultTemplateHeader())
	b.WriteString("\n\n")

	b.WriteString("# Output format: " + formatList() + "\n")
	fmt.Fprintf(&b, "format: %s\n\n", d.Format)

	b.WriteString("# Log level: debug, info, warn or error\n")
	fmt.Fprintf(&b, "%slog_level: %s\n\n", opt, d.LogLevel)

	b.WriteString("# Number of parallel workers (0 = one per CPU)\n")
	fmt.Fprintf(&b, "%sjobs: %d\n\n", opt, d.Jobs)

	b.WriteString("# Limits applied to every parse\n")
	fmt.Fprintf(&b, "%sparser:\n", opt)
	fmt.Fprintf(&b, "%s  max_depth: %d\n", opt, d.Parser.MaxDepth)
	fmt.Fprintf(&b, "%s  max_heredocs: %d\n\n", opt, d.Parser.MaxHeredocs)

	b.WriteString("# Snapshot cache used by watch\n")
	fmt.Fprintf(&b, "%scache:\n", opt)
	fmt.Fprintf(&b, "%s  max_entries: %d\n", opt, d.Cache.MaxEntries)
	fmt.Fprintf(&b, "%s  ttl: %s\n", opt, d.Cache.TTL)
	fmt.Fprintf(&b, "%s  shards: %d\n\n", opt, d.Cache.Shards)

	b.WriteString("# File selection (globs use ** for any depth)\n")
	b.WriteString("files:\n")
	b.WriteString("  extensions:\n")
	for _, ext := range d.Files.Extensions {
		fmt.Fprintf(&b, "    - %q\n", ext)
	}
	fmt.Fprintf(&b, "  %sdetect_shebang: %t\n", opt, d.Files.ShebangDetection())
	b.WriteString("  exclude:\n")
	b.WriteString("    - \"blib/**\"\n")
	b.WriteString("    - \"local/**\"\n")

	return []byte(b.String())
}

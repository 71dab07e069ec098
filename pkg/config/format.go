package config

import (
	"fmt"
	"strings"
)

// OutputFormat specifies how results are written.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
	FormatCBOR OutputFormat = "cbor"
	FormatSexp OutputFormat = "sexp"
)

// Formats lists every supported output format.
func Formats() []OutputFormat {
	return []OutputFormat{FormatText, FormatJSON, FormatYAML, FormatCBOR, FormatSexp}
}

// IsValid returns true if the format is supported.
func (f OutputFormat) IsValid() bool {
	for _, known := range Formats() {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("unknown format %q; must be one of: %s", s, formatList())
	}
	return f, nil
}

func formatList() string {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// ColorMode controls whether output is styled.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// IsValid returns true if the color mode is known.
func (c ColorMode) IsValid() bool {
	switch c {
	case ColorAuto, ColorAlways, ColorNever:
		return true
	default:
		return false
	}
}

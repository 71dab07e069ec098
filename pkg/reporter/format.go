package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/yaklabco/perlparse/pkg/config"
)

// yamlIndent matches the indentation of generated config files.
const yamlIndent = config.YAMLIndent

//nolint:gochecknoglobals // Lazily built, immutable once set.
var (
	cborOnce sync.Once
	cborMode cbor.EncMode
	cborErr  error
)

func cborEncMode() (cbor.EncMode, error) {
	cborOnce.Do(func() {
		cborMode, cborErr = cbor.CanonicalEncOptions().EncMode()
	})
	return cborMode, cborErr
}

// IsStructured reports whether format is one Encode accepts.
func IsStructured(format config.OutputFormat) bool {
	switch format {
	case config.FormatJSON, config.FormatYAML, config.FormatCBOR:
		return true
	default:
		return false
	}
}

// Encode writes v to w in a structured format: JSON, YAML, or canonical
// CBOR. Compact disables JSON indentation.
func Encode(w io.Writer, format config.OutputFormat, v any, compact bool) error {
	switch format {
	case config.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		if !compact {
			encoder.SetIndent("", "  ")
		}
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil

	case config.FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(yamlIndent)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return nil

	case config.FormatCBOR:
		mode, err := cborEncMode()
		if err != nil {
			return fmt.Errorf("cbor options: %w", err)
		}
		if err := mode.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("encode CBOR: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("format %q is not a structured format", format)
	}
}

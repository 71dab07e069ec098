// Package reporter writes parse results as styled text, JSON, YAML, CBOR
// or S-expression tree dumps.
package reporter

import (
	"context"
	"fmt"

	"github.com/yaklabco/perlparse/pkg/config"
	"github.com/yaklabco/perlparse/pkg/runner"
)

// Reporter formats and writes parse results.
type Reporter interface {
	// Report writes formatted output for the given result.
	// It returns the number of parse errors reported and any write error.
	Report(ctx context.Context, result *runner.Result) (int, error)
}

// New creates a Reporter for the specified options.
func New(opts Options) (Reporter, error) {
	if opts.Writer == nil {
		opts.Writer = DefaultOptions().Writer
	}

	format := opts.Format
	if format == "" {
		format = config.FormatText
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	opts.Format = format

	switch format {
	case config.FormatJSON, config.FormatYAML, config.FormatCBOR:
		return NewStructuredReporter(opts), nil
	case config.FormatSexp:
		return NewSexpReporter(opts), nil
	case config.FormatText:
		return NewTextReporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

package reporter

import (
	"io"
	"os"

	"github.com/yaklabco/perlparse/pkg/config"
)

// bufWriterSize is the buffer size for buffered output writers (64 KiB).
const bufWriterSize = 64 * 1024

// Options configures reporter behavior.
type Options struct {
	// Writer is the destination for output (typically os.Stdout).
	Writer io.Writer

	// Format specifies the output format.
	Format config.OutputFormat

	// Color controls colorized text and sexp output.
	Color config.ColorMode

	// ShowContext includes the source line under each text error.
	ShowContext bool

	// ShowSummary adds aggregate statistics after results.
	ShowSummary bool

	// Verbose replaces the one-line text summary with a summary block.
	Verbose bool

	// Table renders text errors as a table instead of per-file lists.
	Table bool

	// Compact disables JSON indentation.
	Compact bool

	// Tokens and Tree add the token list and the flattened tree of each
	// file to structured output.
	Tokens bool
	Tree   bool
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Writer:      os.Stdout,
		Format:      config.FormatText,
		Color:       config.ColorAuto,
		ShowContext: true,
		ShowSummary: true,
	}
}

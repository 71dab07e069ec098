package reporter

import (
	"bufio"
	"context"
	"fmt"

	"github.com/yaklabco/perlparse/internal/ui/pretty"
	"github.com/yaklabco/perlparse/pkg/runner"
)

// TextReporter formats results as styled terminal output.
type TextReporter struct {
	opts   Options
	styles *pretty.Styles
	width  int
	bw     *bufio.Writer
}

// NewTextReporter creates a new text reporter.
func NewTextReporter(opts Options) *TextReporter {
	colorEnabled := pretty.IsColorEnabled(opts.Color, opts.Writer)
	return &TextReporter{
		opts:   opts,
		styles: pretty.NewStyles(colorEnabled),
		width:  pretty.TerminalWidth(opts.Writer),
		bw:     bufio.NewWriterSize(opts.Writer, bufWriterSize),
	}
}

// Report implements Reporter.
func (r *TextReporter) Report(ctx context.Context, result *runner.Result) (_ int, err error) {
	defer func() {
		if flushErr := r.bw.Flush(); err == nil {
			err = flushErr
		}
	}()

	if result == nil || len(result.Files) == 0 {
		if r.opts.ShowSummary {
			fmt.Fprintln(r.bw, r.styles.Success.Render("No files to parse."))
		}
		return 0, nil
	}

	var total int
	if r.opts.Table {
		total = r.reportTable(ctx, result)
	} else {
		total = r.reportGrouped(ctx, result)
	}

	if r.opts.ShowSummary {
		if r.opts.Verbose {
			fmt.Fprint(r.bw, r.styles.FormatSummary(result.Stats))
		} else {
			fmt.Fprint(r.bw, r.styles.FormatSummaryOneLine(result.Stats))
		}
	}

	return total, nil
}

// reportGrouped writes parse errors grouped by file.
func (r *TextReporter) reportGrouped(_ context.Context, result *runner.Result) int {
	var total int

	for _, file := range result.Files {
		if file.Error != nil {
			r.readError(file)
			continue
		}

		errs := file.ParseErrors()
		if len(errs) == 0 {
			continue
		}

		fmt.Fprintln(r.bw, r.styles.FormatFileHeader(file.DisplayPath(), len(errs)))
		for _, perr := range errs {
			fmt.Fprint(r.bw, r.styles.FormatParseError(file.DisplayPath(), file.Snapshot, perr, r.opts.ShowContext))
			total++
		}
		fmt.Fprintln(r.bw)
	}

	return total
}

// reportTable writes every parse error in one table.
func (r *TextReporter) reportTable(_ context.Context, result *runner.Result) int {
	for _, file := range result.Files {
		if file.Error != nil {
			r.readError(file)
		}
	}
	table := pretty.ErrorTable(r.styles, r.width, result)
	fmt.Fprint(r.bw, table.String())
	return table.Len()
}

func (r *TextReporter) readError(file runner.FileOutcome) {
	fmt.Fprintf(r.bw, "%s: %s\n",
		r.styles.FilePath.Render(file.DisplayPath()),
		r.styles.Error.Render(fmt.Sprintf("error: %v", file.Error)),
	)
}

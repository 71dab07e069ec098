package reporter

import (
	"bufio"
	"context"

	"github.com/yaklabco/perlparse/pkg/runner"
)

// StructuredReporter writes a Document as JSON, YAML or CBOR.
type StructuredReporter struct {
	opts Options
	bw   *bufio.Writer
}

// NewStructuredReporter creates a reporter for opts.Format.
func NewStructuredReporter(opts Options) *StructuredReporter {
	return &StructuredReporter{
		opts: opts,
		bw:   bufio.NewWriterSize(opts.Writer, bufWriterSize),
	}
}

// Report implements Reporter.
func (r *StructuredReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer func() {
		if flushErr := r.bw.Flush(); err == nil {
			err = flushErr
		}
	}()

	doc := NewDocument(result, DocOptions{Tokens: r.opts.Tokens, Tree: r.opts.Tree})
	if !r.opts.ShowSummary {
		doc.Summary = nil
	}

	if err := Encode(r.bw, r.opts.Format, doc, r.opts.Compact); err != nil {
		return 0, err
	}

	total := 0
	for _, file := range doc.Files {
		total += len(file.Errors)
	}
	return total, nil
}

package reporter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/yaklabco/perlparse/internal/ui/pretty"
	"github.com/yaklabco/perlparse/pkg/runner"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

const sexpIndent = "  "

// SexpReporter dumps the tree of each file as an S-expression.
type SexpReporter struct {
	opts   Options
	styles *pretty.Styles
	bw     *bufio.Writer
}

// NewSexpReporter creates a new S-expression reporter.
func NewSexpReporter(opts Options) *SexpReporter {
	return &SexpReporter{
		opts:   opts,
		styles: pretty.NewStyles(pretty.IsColorEnabled(opts.Color, opts.Writer)),
		bw:     bufio.NewWriterSize(opts.Writer, bufWriterSize),
	}
}

// Report implements Reporter.
func (r *SexpReporter) Report(_ context.Context, result *runner.Result) (_ int, err error) {
	defer func() {
		if flushErr := r.bw.Flush(); err == nil {
			err = flushErr
		}
	}()

	if result == nil {
		return 0, nil
	}

	total := 0
	for i, file := range result.Files {
		if i > 0 {
			fmt.Fprintln(r.bw)
		}
		fmt.Fprintf(r.bw, "; %s\n", r.styles.FilePath.Render(file.DisplayPath()))
		if file.Error != nil {
			fmt.Fprintf(r.bw, "; %s\n", r.styles.Error.Render("error: "+file.Error.Error()))
			continue
		}
		if file.Snapshot == nil {
			continue
		}
		if err := WriteSexp(r.bw, file.Snapshot.Root, r.styles); err != nil {
			return total, err
		}
		total += len(file.Snapshot.Errors)
	}
	return total, nil
}

// WriteSexp writes root as an indented S-expression, one node per line:
//
//	(Program 0..12
//	  (Call 0..11 name="print"
//	    (String 6..11 value="hi" interpolated=true)))
//
// The walk is iterative, so arbitrarily deep trees are safe to dump.
// A nil styles writes plain text.
func WriteSexp(w io.Writer, root *syntax.Node, styles *pretty.Styles) error {
	if styles == nil {
		styles = pretty.NewStyles(false)
	}
	sw := &sexpWriter{w: w, styles: styles}
	if root == nil {
		sw.write("()\n")
		return sw.err
	}

	depth := 0
	enter := func(n *syntax.Node) error {
		if depth > 0 {
			sw.write("\n")
		}
		sw.write(strings.Repeat(sexpIndent, depth))
		sw.node(n)
		depth++
		return sw.err
	}
	leave := func(*syntax.Node) error {
		depth--
		sw.write(")")
		return sw.err
	}
	if err := syntax.WalkWithLeave(root, enter, leave); err != nil {
		return err
	}
	sw.write("\n")
	return sw.err
}

type sexpWriter struct {
	w      io.Writer
	styles *pretty.Styles
	err    error
}

func (s *sexpWriter) write(text string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, text)
}

func (s *sexpWriter) node(n *syntax.Node) {
	kind := s.styles.NodeKind.Render(n.Kind.String())
	if n.Kind == syntax.NodeError {
		kind = s.styles.NodeError.Render(n.Kind.String())
	}
	s.write("(" + kind + " ")
	s.write(s.styles.Span.Render(fmt.Sprintf("%d..%d", n.Span.Start, n.Span.End)))

	s.field("name", n.Name)
	s.field("op", n.Op)
	s.field("value", n.Value)
	s.field("message", n.Message)

	extra := attrs(n)
	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := extra[key]
		if value == "true" || value == "false" {
			s.write(" " + s.styles.NodeDetail.Render(key+"="+value))
			continue
		}
		s.field(key, value)
	}
}

func (s *sexpWriter) field(key, value string) {
	if value == "" {
		return
	}
	s.write(" " + s.styles.NodeDetail.Render(key+"="+strconv.Quote(value)))
}

package pretty

import (
	"fmt"
	"strings"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// FormatParseError formats one parse error of snap for terminal output:
// location, kind and message, optionally followed by the source line with
// a caret under the error's column.
func (s *Styles) FormatParseError(path string, snap *syntax.Snapshot, perr *syntax.Error, showContext bool) string {
	var builder strings.Builder

	pos := snap.Position(perr.Span.Start)
	location := fmt.Sprintf("%s:%d:%d", s.FilePath.Render(path), pos.Line, pos.Column)

	fmt.Fprintf(&builder, "  %s  %s  %s  %s\n",
		location,
		s.Error.Render("error"),
		s.Message.Render(Describe(perr)),
		s.Kind.Render("("+perr.Kind.String()+")"),
	)

	if showContext {
		if line := snap.LineContent(pos.Line); line != "" {
			builder.WriteString(s.FormatSourceContext(line, pos.Column))
		}
	}

	return builder.String()
}

// Describe renders the message of an error without its kind or offset.
func Describe(perr *syntax.Error) string {
	switch {
	case perr.Expected != "" && perr.Found == "":
		return fmt.Sprintf("expected %s, found end of input", perr.Expected)
	case perr.Expected != "":
		return fmt.Sprintf("expected %s, found %q", perr.Expected, perr.Found)
	case perr.Message != "":
		return perr.Message
	}
	return perr.Kind.String()
}

// FormatSourceContext formats the source line with a caret marker.
func (s *Styles) FormatSourceContext(line string, column int) string {
	var builder strings.Builder

	const indent = "        "
	builder.WriteString(indent + s.SourceLine.Render(line) + "\n")

	if column > 0 {
		padding := indent + strings.Repeat(" ", column-1)
		builder.WriteString(padding + s.Caret.Render("^") + "\n")
	}

	return builder.String()
}

// FormatFileHeader formats a file header for grouped output.
func (s *Styles) FormatFileHeader(path string, errorCount int) string {
	header := s.FilePath.Render(path)
	switch errorCount {
	case 0:
	case 1:
		header += s.Dim.Render(" (1 error)")
	default:
		header += s.Dim.Render(fmt.Sprintf(" (%d errors)", errorCount))
	}
	return header
}

// Package heredoc extracts heredoc bodies before the main parser runs.
//
// Heredocs are declared inline but their bodies sit on the lines after the
// enclosing statement ends, possibly after further tokens on the same
// statement. Extraction runs in three phases over the raw text:
//
//  1. Scan detects introducers (<<TERM, <<"TERM", <<'TERM', <<`TERM`,
//     <<~TERM), assigns each a placeholder, locates body line ranges and
//     rewrites the source with introducers replaced and bodies removed.
//  2. Collect extracts each body and strips indentation for <<~ forms.
//  3. Integrate hands the placeholder-bearing source to the parser.
//
// The parser never re-lexes a body. When it meets a placeholder token it
// looks the declaration up by id and attaches the collected content.
package heredoc

import (
	"strconv"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// MaxDeclarations bounds the number of heredocs accepted in one source.
const MaxDeclarations = 100

const placeholderPrefix, placeholderSuffix = "__HEREDOC_", "__"

// Placeholder returns the placeholder token text for id.
func Placeholder(id int) string {
	return placeholderPrefix + strconv.Itoa(id) + placeholderSuffix
}

// Declaration is one heredoc introducer and, after collection, its body.
type Declaration struct {
	// Terminator is the word that ends the body.
	Terminator string

	// Span covers the introducer in the original source.
	Span syntax.Span

	// Line is the 1-based line of the introducer.
	Line int

	// ContentLine is the 1-based line where the body starts.
	ContentLine int

	// Interpolated is false only for single-quoted terminators.
	Interpolated bool

	// Indented is true for the <<~ form.
	Indented bool

	// ID is the per-scan sequence number; Placeholder derives from it.
	ID int

	// Placeholder replaces the introducer in the rewritten source.
	Placeholder string

	// Content is the collected body. Nil means the terminator was never
	// found.
	Content *string
}

// Dangling reports whether the body has no terminator.
func (d *Declaration) Dangling() bool {
	return d.Content == nil
}

// Info converts the declaration to the snapshot form.
func (d *Declaration) Info() syntax.HeredocInfo {
	info := syntax.HeredocInfo{
		Placeholder:  d.Placeholder,
		Terminator:   d.Terminator,
		Span:         d.Span,
		Line:         d.Line,
		ContentLine:  d.ContentLine,
		Interpolated: d.Interpolated,
		Indented:     d.Indented,
		Terminated:   d.Content != nil,
	}
	if d.Content != nil {
		info.Content = *d.Content
	}
	return info
}

// Attrs converts the declaration to node attributes.
func (d *Declaration) Attrs() *syntax.HeredocAttrs {
	attrs := &syntax.HeredocAttrs{
		Terminator:   d.Terminator,
		Interpolated: d.Interpolated,
		Indented:     d.Indented,
		Terminated:   d.Content != nil,
	}
	if d.Content != nil {
		attrs.Content = *d.Content
	}
	return attrs
}

// Package syntax defines the data model shared by the parsing pipeline:
// tokens with byte spans, the closed set of AST node kinds, structured
// parse errors, line tables and the per-file Snapshot.
//
// A Snapshot is immutable once built. Trees carry no back-references, so
// subtrees of one Snapshot may be reused verbatim by the next Snapshot of
// the same document.
package syntax

// Snapshot is the result of parsing one source text.
type Snapshot struct {
	// Path is the file path or document URI. May be empty.
	Path string

	// Content is the original source text.
	Content string

	// Lines is the line table of Content.
	Lines []LineInfo

	// Tokens are the significant tokens consumed by the parser, with spans
	// in Content coordinates.
	Tokens []Token

	// Root is the Program node. Never nil for a snapshot returned by the parser.
	Root *Node

	// Heredocs lists every heredoc declaration in source order.
	Heredocs []HeredocInfo

	// Errors are the recovered parse errors in source order.
	Errors []*Error
}

// NewSnapshot creates a snapshot with its line table built.
func NewSnapshot(path, content string) *Snapshot {
	return &Snapshot{
		Path:    path,
		Content: content,
		Lines:   BuildLines(content),
	}
}

// HasErrors reports whether parsing recorded any error.
func (f *Snapshot) HasErrors() bool {
	return len(f.Errors) > 0
}

// ErrorsByKind counts errors per kind.
func (f *Snapshot) ErrorsByKind() map[ErrorKind]int {
	counts := make(map[ErrorKind]int)
	for _, err := range f.Errors {
		counts[err.Kind]++
	}
	return counts
}

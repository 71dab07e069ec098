package syntax

// StringAttrs holds string-like literal data (strings, commands, formats).
type StringAttrs struct {
	// Value is the literal content without the surrounding delimiters.
	Value string

	// Interpolated is true when variables in Value are expanded at runtime.
	Interpolated bool
}

// RegexAttrs holds data for match and quote-regex nodes.
type RegexAttrs struct {
	// Pattern includes the opening and closing delimiters.
	Pattern string

	// Modifiers are the trailing flag letters, e.g. "gi".
	Modifiers string

	// HasEmbeddedCode is true when the pattern contains (?{ ... }) or (??{ ... }).
	HasEmbeddedCode bool
}

// SubstAttrs holds the parts of an s/// expression.
type SubstAttrs struct {
	Pattern     string
	Replacement string
	Modifiers   string
}

// TranslitAttrs holds the parts of a tr/// or y/// expression.
type TranslitAttrs struct {
	SearchList  string
	ReplaceList string
	Modifiers   string
}

// HeredocAttrs holds a resolved heredoc body.
type HeredocAttrs struct {
	Terminator   string
	Content      string
	Interpolated bool
	Indented     bool

	// Terminated is false for a dangling heredoc whose terminator was never found.
	Terminated bool
}

// HeredocInfo describes one heredoc declaration of a parsed file.
type HeredocInfo struct {
	Placeholder  string
	Terminator   string
	Span         Span
	Line         int
	ContentLine  int
	Interpolated bool
	Indented     bool
	Terminated   bool
	Content      string
}

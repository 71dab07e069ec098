// Package quote resolves Perl's quote-like operators: q, qq, qw, qr, qx and
// m over a token stream, plus raw-text extractors for s///, tr/// and
// regex literals.
//
// Bracket delimiters ({} [] () <>) nest and are tracked with a depth
// counter bounded at MaxDepth. Every other delimiter closes with itself.
package quote

// MaxDepth is the deepest bracket nesting accepted inside a quote body.
// The outer delimiter counts as depth 1.
const MaxDepth = 50

// Delimiter describes the delimiter pair of one quote body.
type Delimiter struct {
	Open  byte
	Close byte

	// Depth is the current bracket nesting level while scanning.
	Depth int
}

// NewDelimiter derives the closing byte for open.
func NewDelimiter(open byte) Delimiter {
	return Delimiter{Open: open, Close: ClosingDelimiter(open)}
}

// Paired reports whether the delimiter has a distinct closing byte.
func (d Delimiter) Paired() bool {
	return d.Open != d.Close
}

// ClosingDelimiter returns the byte that closes open. Bracket pairs map to
// their counterpart; every other byte closes itself.
func ClosingDelimiter(open byte) byte {
	switch open {
	case '{':
		return '}'
	case '[':
		return ']'
	case '(':
		return ')'
	case '<':
		return '>'
	default:
		return open
	}
}

// IsDelimiter reports whether c may open a quote body. Word characters and
// whitespace cannot.
func IsDelimiter(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		return false
	case c == ' ', c == '\t', c == '\n', c == '\r', c == '\f', c == '\v':
		return false
	case c >= 0x80:
		return false
	default:
		return true
	}
}

// OpensBody reports whether rest, the source text directly after a
// quote-like operator word, starts a quote body. adjacent is false when
// whitespace separates the word from rest; only bracket delimiters may
// follow whitespace. Fat commas and closing punctuation mean the word is a
// bareword (hash key, list item), not an operator.
func OpensBody(rest string, adjacent bool) bool {
	if rest == "" || !IsDelimiter(rest[0]) {
		return false
	}
	c := rest[0]
	switch c {
	case ',', ';', ')', '}', ']':
		return false
	case '=':
		if len(rest) > 1 && rest[1] == '>' {
			return false
		}
	}
	if !adjacent {
		return c == '{' || c == '[' || c == '(' || c == '<'
	}
	return true
}

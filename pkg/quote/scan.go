package quote

import (
	"errors"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// ErrUnterminated is returned when input ends before the closing delimiter.
var ErrUnterminated = errors.New("unterminated delimited text")

// ScanDelimited scans raw text starting at pos, the index just past an
// opening delimiter open. It returns the body (escapes kept verbatim) and
// the index just past the closing delimiter.
//
// A backslash escapes the following byte, so an escaped delimiter neither
// closes the body nor changes the depth.
func ScanDelimited(src string, pos int, open byte) (string, int, error) {
	delim := NewDelimiter(open)
	delim.Depth = 1

	for i := pos; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\':
			i++
		case delim.Paired() && c == delim.Open:
			delim.Depth++
			if delim.Depth > MaxDepth {
				return "", i, nestingError(i)
			}
		case c == delim.Close:
			delim.Depth--
			if delim.Depth == 0 {
				return src[pos:i], i + 1, nil
			}
		}
	}
	return "", len(src), ErrUnterminated
}

func nestingError(offset int) *syntax.Error {
	return syntax.NewError(syntax.ErrNestingLimit, syntax.Span{Start: offset, End: offset + 1},
		"nesting too deep (limit %d)", MaxDepth)
}

func skipSpace(src string, pos int) int {
	for pos < len(src) {
		switch src[pos] {
		case ' ', '\t', '\n', '\r', '\f':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// leadingAlpha returns the run of ASCII letters at the start of s.
func leadingAlpha(s string) string {
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	return s[:i]
}

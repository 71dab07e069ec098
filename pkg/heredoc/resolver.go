package heredoc

import "strings"

// StatementResolver reports the 0-based index of the line on which the
// statement containing a heredoc introducer ends.
type StatementResolver interface {
	StatementEndLine(lines []string, declLine int) int
}

// BracketResolver finds statement ends with a bracket stack and string
// state. A statement ends at a ';' outside brackets, or at the end of a
// line where brackets balance and the line does not end with ',' or a
// binary operator.
type BracketResolver struct{}

// StatementEndLine implements StatementResolver.
func (BracketResolver) StatementEndLine(lines []string, declLine int) int {
	if declLine < 0 || declLine >= len(lines) {
		return declLine
	}
	if strings.HasSuffix(strings.TrimSpace(lines[declLine]), ";") {
		return declLine
	}

	var st bracketState
	for li := declLine; li < len(lines); li++ {
		switch st.scanLine(lines[li]) {
		case lineTerminated:
			return li
		case lineOpen:
			continue
		case lineBalanced:
			if !continues(lines[li]) {
				return li
			}
		}
	}
	return len(lines) - 1
}

type lineOutcome int

const (
	lineOpen lineOutcome = iota
	lineBalanced
	lineTerminated
)

type bracketState struct {
	depth int
	quote byte
}

func (st *bracketState) scanLine(line string) lineOutcome {
	for i := 0; i < len(line); i++ {
		c := line[i]
		if st.quote != 0 {
			switch c {
			case '\\':
				i++
			case st.quote:
				st.quote = 0
			}
			continue
		}
		switch c {
		case '\\':
			i++
		case '\'', '"', '`':
			st.quote = c
		case '#':
			if isCommentStart(line, i) {
				return st.outcome()
			}
		case '(', '[', '{':
			st.depth++
		case ')', ']', '}':
			st.depth--
			if st.depth < 0 {
				// closing an enclosing block ends the statement
				return lineTerminated
			}
		case ';':
			if st.depth == 0 {
				return lineTerminated
			}
		}
	}
	return st.outcome()
}

func (st *bracketState) outcome() lineOutcome {
	if st.depth == 0 && st.quote == 0 {
		return lineBalanced
	}
	return lineOpen
}

// isCommentStart reports whether the '#' at i starts a comment rather
// than being part of $#array or a quote delimiter such as qw#...#.
func isCommentStart(line string, i int) bool {
	if i == 0 {
		return true
	}
	prev := line[i-1]
	return prev != '$' && !isWordByte(prev)
}

func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '#' && isCommentStart(line, i):
			return line[:i]
		}
	}
	return line
}

// continuationSuffixes are line endings that leave an expression
// unfinished.
//
//nolint:gochecknoglobals // Read-only lookup table.
var continuationSuffixes = []string{",", ".", "+", "-", "*", "=", "&&", "||", "?", ":"}

// continuationWords are low-precedence operators that leave an
// expression unfinished.
//
//nolint:gochecknoglobals // Read-only lookup table.
var continuationWords = []string{"and", "or", "xor", "not", "eq", "ne", "lt", "gt", "le", "ge", "cmp", "x"}

// continues reports whether line ends in the middle of an expression, so
// the statement goes on past it.
func continues(line string) bool {
	line = strings.TrimSpace(stripComment(line))
	if line == "" || strings.HasSuffix(line, "++") || strings.HasSuffix(line, "--") {
		return false
	}
	for _, suffix := range continuationSuffixes {
		if strings.HasSuffix(line, suffix) {
			return true
		}
	}
	end := len(line)
	start := end
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	// word operators stand apart from the previous token: $or and <<x are
	// not operators
	if start == 0 || (line[start-1] != ' ' && line[start-1] != '\t' && line[start-1] != ')') {
		return false
	}
	word := line[start:end]
	for _, w := range continuationWords {
		if word == w {
			return true
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || isIdentStart(c) || (c >= '0' && c <= '9')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

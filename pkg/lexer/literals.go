package lexer

import (
	"github.com/yaklabco/perlparse/pkg/quote"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

func (l *Lexer) lexNumber() syntax.Token {
	start := l.pos
	if l.src[l.pos] == '0' && (l.peekByte(1) == 'x' || l.peekByte(1) == 'X') {
		l.pos += 2
		for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		return l.emit(syntax.TokNumber, start)
	}
	if l.src[l.pos] == '0' && (l.peekByte(1) == 'b' || l.peekByte(1) == 'B') {
		l.pos += 2
		for l.pos < len(l.src) && (l.src[l.pos] == '0' || l.src[l.pos] == '1' || l.src[l.pos] == '_') {
			l.pos++
		}
		return l.emit(syntax.TokNumber, start)
	}

	l.digits()
	// A '.' is a decimal point unless it starts the range operator.
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.peekByte(1) != '.' {
		l.pos++
		l.digits()
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		exp := l.pos + 1
		if exp < len(l.src) && (l.src[exp] == '+' || l.src[exp] == '-') {
			exp++
		}
		if exp < len(l.src) && isDigit(l.src[exp]) {
			l.pos = exp
			l.digits()
		}
	}
	return l.emit(syntax.TokNumber, start)
}

func (l *Lexer) digits() {
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// specialScalars are punctuation variables: $_ is covered by identifiers.
const specialScalars = "&`'+!@/\\.<>0;,"

// lexScalar lexes $name, $#name, $1, $^W, punctuation variables, and the
// '$' and '$#' dereference casts.
func (l *Lexer) lexScalar() syntax.Token {
	start := l.pos
	next := l.peekByte(1)

	switch {
	case next == '#':
		after := l.peekByte(2)
		switch {
		case after == '{' || after == '$':
			l.pos += 2
			return l.emit(syntax.TokOperator, start)
		case isIdentStart(after) || after == ':':
			l.pos += 2
			l.scanIdentifier()
			return l.emit(syntax.TokVariable, start)
		}
		l.pos += 2
		return l.emit(syntax.TokVariable, start)
	case isIdentStart(next):
		l.pos++
		l.scanIdentifier()
		return l.emit(syntax.TokVariable, start)
	case next == ':' && l.peekByte(2) == ':':
		l.pos += 3
		l.scanIdentifier()
		return l.emit(syntax.TokVariable, start)
	case isDigit(next):
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		return l.emit(syntax.TokVariable, start)
	case next == '$':
		after := l.peekByte(2)
		if isIdentStart(after) || after == '$' || after == '{' || after == ':' {
			l.pos++
			return l.emit(syntax.TokOperator, start)
		}
		l.pos += 2
		return l.emit(syntax.TokVariable, start)
	case next == '{':
		l.pos++
		return l.emit(syntax.TokOperator, start)
	case next == '^' && isAlpha(l.peekByte(2)):
		l.pos += 3
		return l.emit(syntax.TokVariable, start)
	case next != 0 && containsByte(specialScalars, next):
		l.pos += 2
		return l.emit(syntax.TokVariable, start)
	}

	l.pos++
	return l.emit(syntax.TokError, start)
}

// lexSigil lexes @name, %name, &name and the matching dereference casts.
func (l *Lexer) lexSigil(sigil byte) syntax.Token {
	start := l.pos
	next := l.peekByte(1)

	switch {
	case isIdentStart(next):
		l.pos++
		l.scanIdentifier()
		return l.emit(syntax.TokVariable, start)
	case next == ':' && l.peekByte(2) == ':':
		l.pos += 3
		l.scanIdentifier()
		return l.emit(syntax.TokVariable, start)
	case sigil == '@' && (next == '$' || next == '{'):
		l.pos++
		return l.emit(syntax.TokOperator, start)
	case sigil != '@' && (next == '$' || next == '{'):
		l.pos++
		return l.emit(syntax.TokOperator, start)
	case sigil == '%' && (next == '+' || next == '-') && !isDigit(l.peekByte(2)):
		l.pos += 2
		return l.emit(syntax.TokVariable, start)
	case sigil == '@' && isDigit(next):
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		return l.emit(syntax.TokVariable, start)
	}

	return l.lexOperator()
}

// lexString lexes a quoted literal with backslash escapes. An unterminated
// literal yields a one-byte error token so lexing resumes right after the
// quote character.
func (l *Lexer) lexString(kind syntax.TokenKind, q byte) syntax.Token {
	start := l.pos
	for i := start + 1; i < len(l.src); i++ {
		switch l.src[i] {
		case '\\':
			i++
		case q:
			l.pos = i + 1
			return l.emit(kind, start)
		}
	}
	return l.errorAt(start, start+1)
}

// lexRegex lexes /pattern/flags in term position.
func (l *Lexer) lexRegex() syntax.Token {
	start := l.pos
	_, end, err := quote.ScanDelimited(l.src, start+1, '/')
	if err != nil {
		return l.errorAt(start, start+1)
	}
	l.pos = end
	for l.pos < len(l.src) && isAlpha(l.src[l.pos]) {
		l.pos++
	}
	return l.emit(syntax.TokRegex, start)
}

// lexReadline lexes <FH>, <$fh>, <STDIN> and <>.
func (l *Lexer) lexReadline() (syntax.Token, bool) {
	start := l.pos
	i := start + 1
	if i < len(l.src) && l.src[i] == '$' {
		i++
	}
	for i < len(l.src) && (isWordByte(l.src[i]) || l.src[i] == ':') {
		i++
	}
	if i < len(l.src) && l.src[i] == '>' {
		l.pos = i + 1
		return l.emit(syntax.TokReadline, start), true
	}
	return syntax.Token{}, false
}

//nolint:gochecknoglobals // Read-only lookup table, longest operators first.
var operators = []string{
	"<=>", "**=", "||=", "//=", "&&=", "...", "<<=", ">>=",
	"->", "++", "--", "**", "=~", "!~", "==", "!=", "<=", ">=", "&&", "||",
	"//", "..", "::", "<<", ">>", "+=", "-=", "*=", "/=", ".=", "%=", "|=",
	"&=", "^=", "=>",
}

func (l *Lexer) lexOperator() syntax.Token {
	start := l.pos
	rest := l.src[start:]
	for _, op := range operators {
		if len(rest) >= len(op) && rest[:len(op)] == op {
			l.pos += len(op)
			return l.emit(syntax.TokOperator, start)
		}
	}

	c := l.src[start]
	if c >= 0x80 || c < 0x20 && c != '\t' {
		// Skip a whole UTF-8 sequence so the error token is one rune.
		end := start + 1
		for end < len(l.src) && l.src[end]&0xC0 == 0x80 {
			end++
		}
		return l.errorAt(start, end)
	}
	l.pos++
	return l.emit(syntax.TokOperator, start)
}

func containsByte(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}

// Package lexer is a mode-sensitive tokenizer for Perl source.
//
// Perl cannot be tokenized without knowing whether a term or an operator
// comes next: "/" starts a regex where a term is expected and means
// division after one. The lexer tracks that state itself and lets the
// caller override it with Reset, which the token stream does at statement
// boundaries.
//
// Malformed input never panics and never stops the lexer; it produces
// syntax.TokError tokens and carries on.
package lexer

import (
	"strings"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// Lexer produces tokens from a source string.
type Lexer struct {
	src  string
	pos  int
	mode syntax.LexMode

	// lastWord is the identifier that ended exactly at lastEnd, used to
	// recognise a '#' delimiter glued to a quote operator.
	lastWord string
	lastEnd  int
}

// New creates a lexer positioned at the start of src, expecting a term.
func New(src string) *Lexer {
	return &Lexer{src: src, lastEnd: -1}
}

// Source returns the text being lexed.
func (l *Lexer) Source() string {
	return l.src
}

// Offset returns the current byte position.
func (l *Lexer) Offset() int {
	return l.pos
}

// Mode returns the current lexer mode.
func (l *Lexer) Mode() syntax.LexMode {
	return l.mode
}

// Reset repositions the lexer at offset in the given mode.
func (l *Lexer) Reset(offset int, mode syntax.LexMode) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(l.src) {
		offset = len(l.src)
	}
	l.pos = offset
	l.mode = mode
	l.lastWord, l.lastEnd = "", -1

	start := offset
	for start > 0 && isWordByte(l.src[start-1]) {
		start--
	}
	if start < offset {
		l.lastWord, l.lastEnd = l.src[start:offset], offset
	}
}

// Next returns the next token, including trivia. At end of input it
// returns a TokEOF token on every call.
func (l *Lexer) Next() syntax.Token {
	if l.pos >= len(l.src) {
		return syntax.EOFToken(len(l.src))
	}
	if l.mode == syntax.ModeFormat {
		return l.lexFormat()
	}

	tok := l.lex()
	l.updateMode(tok)
	if tok.Kind == syntax.TokIdentifier {
		l.lastWord, l.lastEnd = tok.Text, tok.Span.End
	} else if !tok.Kind.IsTrivia() {
		l.lastWord, l.lastEnd = "", -1
	}
	return tok
}

// All lexes the whole source and returns every token, trivia included,
// without the final EOF.
func All(src string) []syntax.Token {
	lx := New(src)
	var out []syntax.Token
	for {
		tok := lx.Next()
		if tok.IsEOF() {
			return out
		}
		out = append(out, tok)
	}
}

func (l *Lexer) lex() syntax.Token {
	start := l.pos
	c := l.src[start]

	switch {
	case c == '\n':
		l.pos++
		return l.emit(syntax.TokNewline, start)
	case c == '\r' && l.peekByte(1) == '\n':
		l.pos += 2
		return l.emit(syntax.TokNewline, start)
	case c == '=' && l.atLineStart() && isAlpha(l.peekByte(1)):
		return l.lexPod()
	case isSpace(c):
		for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
			l.pos++
		}
		return l.emit(syntax.TokWhitespace, start)
	case c == '#':
		if l.lastEnd == start && quoteWord(l.lastWord) {
			l.pos++
			return l.emit(syntax.TokOperator, start)
		}
		for l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.pos++
		}
		return l.emit(syntax.TokComment, start)
	case isIdentStart(c):
		return l.lexWord()
	case isDigit(c), c == '.' && isDigit(l.peekByte(1)) && l.mode == syntax.ModeExpectTerm:
		return l.lexNumber()
	case c == '$':
		return l.lexScalar()
	case c == '@':
		return l.lexSigil('@')
	case c == '%' && l.mode == syntax.ModeExpectTerm:
		return l.lexSigil('%')
	case c == '&' && l.mode == syntax.ModeExpectTerm && (isIdentStart(l.peekByte(1)) || l.peekByte(1) == '$' || l.peekByte(1) == '{'):
		return l.lexSigil('&')
	case c == '\'':
		return l.lexString(syntax.TokString, '\'')
	case c == '"':
		return l.lexString(syntax.TokInterpolatedString, '"')
	case c == '`':
		return l.lexString(syntax.TokCommand, '`')
	case c == '/' && l.mode == syntax.ModeExpectTerm:
		return l.lexRegex()
	case c == '<' && l.mode == syntax.ModeExpectTerm:
		if tok, ok := l.lexReadline(); ok {
			return tok
		}
	}

	return l.lexOperator()
}

func (l *Lexer) emit(kind syntax.TokenKind, start int) syntax.Token {
	return syntax.Token{Kind: kind, Text: l.src[start:l.pos], Span: syntax.Span{Start: start, End: l.pos}}
}

func (l *Lexer) errorAt(start, end int) syntax.Token {
	l.pos = end
	return l.emit(syntax.TokError, start)
}

func (l *Lexer) peekByte(ahead int) byte {
	if l.pos+ahead < len(l.src) {
		return l.src[l.pos+ahead]
	}
	return 0
}

func (l *Lexer) atLineStart() bool {
	return l.pos == 0 || l.src[l.pos-1] == '\n'
}

// lexPod skips a POD block from a "=word" line through the "=cut" line.
func (l *Lexer) lexPod() syntax.Token {
	start := l.pos
	for l.pos < len(l.src) {
		lineEnd := strings.IndexByte(l.src[l.pos:], '\n')
		line := l.src[l.pos:]
		next := len(l.src)
		if lineEnd >= 0 {
			line = l.src[l.pos : l.pos+lineEnd]
			next = l.pos + lineEnd + 1
		}
		isCut := strings.HasPrefix(line, "=cut") && (len(line) == 4 || !isWordByte(line[4]))
		l.pos = next
		if isCut {
			break
		}
	}
	return l.emit(syntax.TokPod, start)
}

// lexFormat captures a format body up to a line holding a single '.'.
// The rest of the line that switched the lexer into format mode is skipped.
func (l *Lexer) lexFormat() syntax.Token {
	if nl := strings.IndexByte(l.src[l.pos:], '\n'); nl >= 0 {
		l.pos += nl + 1
	} else {
		l.pos = len(l.src)
	}
	start := l.pos
	for l.pos < len(l.src) {
		lineEnd := strings.IndexByte(l.src[l.pos:], '\n')
		next := len(l.src)
		line := l.src[l.pos:]
		if lineEnd >= 0 {
			line = l.src[l.pos : l.pos+lineEnd]
			next = l.pos + lineEnd + 1
		}
		if strings.TrimRight(line, " \t\r") == "." {
			tok := syntax.Token{Kind: syntax.TokFormatBody, Text: l.src[start:l.pos], Span: syntax.Span{Start: start, End: next}}
			l.pos = next
			l.mode = syntax.ModeExpectTerm
			return tok
		}
		l.pos = next
	}
	l.mode = syntax.ModeExpectTerm
	return l.emit(syntax.TokError, start)
}

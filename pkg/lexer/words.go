package lexer

import (
	"strings"

	"github.com/yaklabco/perlparse/pkg/quote"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// termWords are barewords after which a term is expected. Anything else
// (user subs, filehandles, hash keys) is followed by an operator.
//
//nolint:gochecknoglobals // Read-only lookup table.
var termWords = map[string]bool{
	"if": true, "elsif": true, "unless": true, "while": true, "until": true,
	"for": true, "foreach": true, "return": true, "and": true, "or": true,
	"not": true, "xor": true, "x": true, "lt": true, "gt": true, "le": true,
	"ge": true, "eq": true, "ne": true, "cmp": true, "my": true, "our": true,
	"local": true, "state": true, "print": true, "printf": true, "say": true,
	"push": true, "unshift": true, "splice": true, "split": true, "join": true,
	"grep": true, "map": true, "sort": true, "reverse": true, "keys": true,
	"values": true, "each": true, "die": true, "warn": true, "defined": true,
	"ref": true, "scalar": true, "delete": true, "exists": true, "undef": true,
	"bless": true, "chomp": true, "chop": true, "chr": true, "ord": true,
	"lc": true, "uc": true, "lcfirst": true, "ucfirst": true, "length": true,
	"substr": true, "index": true, "rindex": true, "sprintf": true, "open": true,
	"close": true, "binmode": true, "unlink": true, "mkdir": true, "rmdir": true,
	"require": true, "do": true, "eval": true, "when": true, "given": true,
	"last": true, "next": true, "redo": true, "goto": true, "wantarray": true,
	"exit": true, "sub": true, "pos": true, "quotemeta": true, "abs": true,
	"int": true, "sqrt": true, "sleep": true, "lock": true, "shift": true,
	"pop": true,
}

// quoteWord reports whether word is a quote-like operator, including the
// substitution-style ones the lexer resolves itself.
func quoteWord(word string) bool {
	switch word {
	case "q", "qq", "qw", "qr", "qx", "m", "s", "tr", "y":
		return true
	default:
		return false
	}
}

// IsTermWord reports whether a term is expected after the bareword.
func IsTermWord(word string) bool {
	return termWords[word]
}

func (l *Lexer) updateMode(tok syntax.Token) {
	switch tok.Kind {
	case syntax.TokWhitespace, syntax.TokNewline, syntax.TokComment, syntax.TokPod:
	case syntax.TokIdentifier:
		if termWords[tok.Text] {
			l.mode = syntax.ModeExpectTerm
		} else {
			l.mode = syntax.ModeExpectOperator
		}
	case syntax.TokOperator:
		switch tok.Text {
		case ")", "]", "}":
			l.mode = syntax.ModeExpectOperator
		default:
			l.mode = syntax.ModeExpectTerm
		}
	case syntax.TokError:
	default:
		l.mode = syntax.ModeExpectOperator
	}
}

func (l *Lexer) lexWord() syntax.Token {
	start := l.pos
	l.scanIdentifier()
	word := l.src[start:l.pos]

	switch {
	case word == "__END__" || word == "__DATA__":
		l.pos = len(l.src)
		return l.emit(syntax.TokDataSection, start)
	case isPlaceholder(word):
		return l.emit(syntax.TokHeredocPlaceholder, start)
	case len(word) > 1 && word[0] == 'v' && isDigit(word[1]) && allDigits(word[1:]):
		for l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
			l.pos++
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
		return l.emit(syntax.TokVersion, start)
	}

	if l.mode == syntax.ModeExpectTerm {
		switch word {
		case "s":
			if tok, ok := l.lexSubstitutionLike(start, syntax.TokSubstitution); ok {
				return tok
			}
		case "tr", "y":
			if tok, ok := l.lexSubstitutionLike(start, syntax.TokTransliteration); ok {
				return tok
			}
		}
	}

	return l.emit(syntax.TokIdentifier, start)
}

// scanIdentifier consumes word characters and '::' package separators.
func (l *Lexer) scanIdentifier() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isWordByte(c):
			l.pos++
		case c == ':' && l.peekByte(1) == ':' && isIdentStart(l.peekByte(2)):
			l.pos += 2
		default:
			return
		}
	}
}

// lexSubstitutionLike lexes s///, tr/// and y/// as single tokens. It
// reports false, consuming nothing beyond the word, when the word is not
// followed by a body (s => 1, $h{y}).
func (l *Lexer) lexSubstitutionLike(start int, kind syntax.TokenKind) (syntax.Token, bool) {
	after := l.pos
	body := after
	for body < len(l.src) && (l.src[body] == ' ' || l.src[body] == '\t') {
		body++
	}
	if !quote.OpensBody(l.src[body:], body == after) {
		return syntax.Token{}, false
	}

	open := l.src[body]
	_, end, err := quote.ScanDelimited(l.src, body+1, open)
	if err == nil {
		if quote.ClosingDelimiter(open) != open {
			next := end
			for next < len(l.src) && (isSpace(l.src[next]) || l.src[next] == '\n') {
				next++
			}
			if next < len(l.src) && quote.IsDelimiter(l.src[next]) {
				_, end, err = quote.ScanDelimited(l.src, next+1, l.src[next])
			} else {
				err = quote.ErrUnterminated
			}
		} else {
			_, end, err = quote.ScanDelimited(l.src, end, open)
		}
	}
	if err != nil {
		return l.errorAt(start, len(l.src)), true
	}

	l.pos = end
	for l.pos < len(l.src) && isAlpha(l.src[l.pos]) {
		l.pos++
	}
	return l.emit(kind, start), true
}

func isPlaceholder(word string) bool {
	const prefix, suffix = "__HEREDOC_", "__"
	if !strings.HasPrefix(word, prefix) || !strings.HasSuffix(word, suffix) {
		return false
	}
	digits := word[len(prefix) : len(word)-len(suffix)]
	return digits != "" && allDigits(digits)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentStart(c byte) bool {
	return isAlpha(c) || c == '_'
}

func isWordByte(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

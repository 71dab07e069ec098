package syntax

import "strconv"

// TokenKind classifies a primitive token produced by a lexer.
type TokenKind uint16

// Token kinds.
const (
	// TokEOF is the end-of-input sentinel.
	TokEOF TokenKind = iota

	// Trivia. The token stream skips these.
	TokWhitespace
	TokNewline
	TokComment
	TokPod

	// Words and names.
	TokIdentifier
	TokVariable
	TokHeredocPlaceholder

	// Literals.
	TokNumber
	TokVersion
	TokString
	TokInterpolatedString
	TokCommand
	TokRegex
	TokSubstitution
	TokTransliteration
	TokReadline

	// TokOperator covers every operator and punctuation symbol.
	TokOperator

	// Raw captures.
	TokFormatBody
	TokDataSection

	// TokError marks malformed input. Text holds the offending bytes.
	TokError
)

//nolint:gochecknoglobals // Read-only lookup table.
var tokenKindNames = [...]string{
	TokEOF:                "EOF",
	TokWhitespace:         "Whitespace",
	TokNewline:            "Newline",
	TokComment:            "Comment",
	TokPod:                "Pod",
	TokIdentifier:         "Identifier",
	TokVariable:           "Variable",
	TokHeredocPlaceholder: "HeredocPlaceholder",
	TokNumber:             "Number",
	TokVersion:            "Version",
	TokString:             "String",
	TokInterpolatedString: "InterpolatedString",
	TokCommand:            "Command",
	TokRegex:              "Regex",
	TokSubstitution:       "Substitution",
	TokTransliteration:    "Transliteration",
	TokReadline:           "Readline",
	TokOperator:           "Operator",
	TokFormatBody:         "FormatBody",
	TokDataSection:        "DataSection",
	TokError:              "Error",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) && tokenKindNames[k] != "" {
		return tokenKindNames[k]
	}
	return "TokenKind(" + strconv.Itoa(int(k)) + ")"
}

// IsTrivia reports whether tokens of this kind carry no syntax.
func (k TokenKind) IsTrivia() bool {
	switch k {
	case TokWhitespace, TokNewline, TokComment, TokPod:
		return true
	default:
		return false
	}
}

// Token is a single lexeme. Tokens are values and never change once produced.
type Token struct {
	Kind TokenKind
	Text string
	Span Span
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// IsOp reports whether the token is the operator text.
func (t Token) IsOp(text string) bool {
	return t.Kind == TokOperator && t.Text == text
}

// IsWord reports whether the token is the bareword text.
func (t Token) IsWord(text string) bool {
	return t.Kind == TokIdentifier && t.Text == text
}

// IsEOF reports whether the token is the end-of-input sentinel.
func (t Token) IsEOF() bool {
	return t.Kind == TokEOF
}

// Len returns the byte length of the token.
func (t Token) Len() int {
	return t.Span.Len()
}

// EOFToken returns the sentinel token positioned at offset.
func EOFToken(offset int) Token {
	return Token{Kind: TokEOF, Span: Span{Start: offset, End: offset}}
}

// LexMode is the state a mode-sensitive lexer is in. The same character can
// start different tokens depending on whether a term or an operator is
// expected ("/" is a regex in one and division in the other).
type LexMode uint8

// Lexer modes.
const (
	ModeExpectTerm LexMode = iota
	ModeExpectOperator
	ModeFormat
)

func (m LexMode) String() string {
	switch m {
	case ModeExpectTerm:
		return "ExpectTerm"
	case ModeExpectOperator:
		return "ExpectOperator"
	case ModeFormat:
		return "Format"
	default:
		return "LexMode(" + strconv.Itoa(int(m)) + ")"
	}
}

package syntax

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a parse error.
type ErrorKind uint8

// Error kinds.
const (
	// ErrLexical is a malformed token reported by the lexer.
	ErrLexical ErrorKind = iota + 1

	// ErrSyntax is an unexpected token: expected X, found Y.
	ErrSyntax

	// ErrUnexpectedEOF is input ending inside a construct.
	ErrUnexpectedEOF

	// ErrNestingLimit is a delimiter, declaration or recursion limit being exceeded.
	ErrNestingLimit

	// ErrDanglingHeredoc is a heredoc whose terminator never appears.
	ErrDanglingHeredoc
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLexical:
		return "lexical error"
	case ErrSyntax:
		return "syntax error"
	case ErrUnexpectedEOF:
		return "unexpected end of input"
	case ErrNestingLimit:
		return "nesting limit exceeded"
	case ErrDanglingHeredoc:
		return "dangling heredoc"
	default:
		return "unknown error"
	}
}

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrKindLexical         = errors.New("lexical error")
	ErrKindSyntax          = errors.New("syntax error")
	ErrKindUnexpectedEOF   = errors.New("unexpected end of input")
	ErrKindNestingLimit    = errors.New("nesting limit exceeded")
	ErrKindDanglingHeredoc = errors.New("dangling heredoc")
)

// Error is a structured parse error.
type Error struct {
	Kind ErrorKind
	Span Span

	// Expected and Found are set for syntax errors.
	Expected string
	Found    string

	// Message is a free-form description used when Expected is empty.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	fmt.Fprintf(&b, " at offset %d", e.Span.Start)
	if e.Expected != "" {
		fmt.Fprintf(&b, ": expected %s, found %s", e.Expected, displayFound(e.Found))
	} else if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrKindLexical:
		return e.Kind == ErrLexical
	case ErrKindSyntax:
		return e.Kind == ErrSyntax
	case ErrKindUnexpectedEOF:
		return e.Kind == ErrUnexpectedEOF
	case ErrKindNestingLimit:
		return e.Kind == ErrNestingLimit
	case ErrKindDanglingHeredoc:
		return e.Kind == ErrDanglingHeredoc
	default:
		return false
	}
}

func displayFound(found string) string {
	if found == "" {
		return "end of input"
	}
	return fmt.Sprintf("%q", found)
}

// NewSyntaxError reports that expected was wanted but tok was found.
func NewSyntaxError(expected string, tok Token) *Error {
	if tok.IsEOF() {
		return &Error{Kind: ErrUnexpectedEOF, Span: tok.Span, Expected: expected}
	}
	return &Error{Kind: ErrSyntax, Span: tok.Span, Expected: expected, Found: tok.Text}
}

// NewError creates an error of the given kind with a message.
func NewError(kind ErrorKind, span Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

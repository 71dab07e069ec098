// Package tokstream adapts a mode-sensitive lexer into a buffered stream
// of significant tokens with up to three tokens of lookahead.
//
// Lookahead is computed under whatever mode the lexer was in when the
// token was read. Because the same bytes lex differently in term and
// operator position, buffered tokens must never survive a statement
// boundary: OnStmtBoundary throws them away, rewinds the lexer to the
// first discarded token and restarts it expecting a term.
package tokstream

import "github.com/yaklabco/perlparse/pkg/syntax"

// Lexer is the primitive tokenizer the stream reads from.
type Lexer interface {
	// Next returns the next token, trivia included. At end of input it
	// returns TokEOF.
	Next() syntax.Token

	// Reset repositions the lexer at offset in the given mode.
	Reset(offset int, mode syntax.LexMode)

	// Mode returns the current mode.
	Mode() syntax.LexMode

	// Offset returns the byte position of the next token.
	Offset() int
}

// lookahead is the number of tokens Peek can see.
const lookahead = 3

// Stream buffers significant tokens from a Lexer.
type Stream struct {
	lexer  Lexer
	source string

	buf [lookahead]syntax.Token
	n   int

	// eof is set once the sentinel has been consumed; afterwards every
	// Peek and Next returns it without touching the lexer.
	eof      bool
	eofToken syntax.Token

	// lastEnd is the end offset of the last consumed token.
	lastEnd int

	consumed []syntax.Token
	record   bool
}

// Option configures a Stream.
type Option func(*Stream)

// WithRecording keeps every consumed token so it can be read back with Consumed.
func WithRecording() Option {
	return func(s *Stream) {
		s.record = true
	}
}

// New creates a stream over lexer. source is the text the lexer reads; it
// backs Slice.
func New(lexer Lexer, source string, opts ...Option) *Stream {
	s := &Stream{lexer: lexer, source: source, lastEnd: lexer.Offset()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fill reads significant tokens until n are buffered.
func (s *Stream) fill(n int) {
	for s.n < n {
		if s.eof {
			s.buf[s.n] = s.eofToken
			s.n++
			continue
		}
		tok := s.lexer.Next()
		for tok.Kind.IsTrivia() {
			tok = s.lexer.Next()
		}
		s.buf[s.n] = tok
		s.n++
		if tok.IsEOF() {
			// Pad the rest of the buffer with the sentinel; nothing
			// follows end of input.
			for s.n < n {
				s.buf[s.n] = tok
				s.n++
			}
		}
	}
}

// Peek returns the next token without consuming it.
func (s *Stream) Peek() syntax.Token {
	s.fill(1)
	return s.buf[0]
}

// PeekSecond returns the token after Peek.
func (s *Stream) PeekSecond() syntax.Token {
	s.fill(2)
	return s.buf[1]
}

// PeekThird returns the token after PeekSecond.
func (s *Stream) PeekThird() syntax.Token {
	s.fill(3)
	return s.buf[2]
}

// Next consumes and returns one token. Once end of input is reached it
// keeps returning the EOF sentinel.
func (s *Stream) Next() syntax.Token {
	s.fill(1)
	tok := s.buf[0]
	copy(s.buf[:], s.buf[1:s.n])
	s.n--
	s.lastEnd = tok.Span.End

	if tok.IsEOF() {
		s.eof = true
		s.eofToken = tok
	} else if s.record {
		s.consumed = append(s.consumed, tok)
	}
	return tok
}

// OnStmtBoundary discards buffered lookahead and restarts the lexer at
// the first discarded token in ModeExpectTerm.
func (s *Stream) OnStmtBoundary() {
	s.rewind(syntax.ModeExpectTerm)
}

// EnterFormatMode discards lookahead and switches the lexer to raw
// format-body capture starting right after the last consumed token. The
// next token is the body.
func (s *Stream) EnterFormatMode() {
	if s.eof {
		return
	}
	s.n = 0
	s.lexer.Reset(s.lastEnd, syntax.ModeFormat)
}

// InvalidatePeek discards buffered lookahead so it is lexed again in the
// lexer's current mode.
func (s *Stream) InvalidatePeek() {
	s.rewind(s.lexer.Mode())
}

func (s *Stream) rewind(mode syntax.LexMode) {
	if s.eof {
		return
	}
	if s.n == 0 {
		s.lexer.Reset(s.lexer.Offset(), mode)
		return
	}
	start := s.buf[0].Span.Start
	s.n = 0
	s.lexer.Reset(start, mode)
}

// Slice returns source text between two offsets, clamped to the source.
func (s *Stream) Slice(start, end int) string {
	return syntax.Span{Start: start, End: end}.Text(s.source)
}

// Source returns the text the stream reads.
func (s *Stream) Source() string {
	return s.source
}

// Consumed returns the recorded tokens. It is empty unless the stream was
// created WithRecording.
func (s *Stream) Consumed() []syntax.Token {
	return s.consumed
}

// LastEnd returns the end offset of the last consumed token, or the start
// offset when nothing has been consumed.
func (s *Stream) LastEnd() int {
	return s.lastEnd
}

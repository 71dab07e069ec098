package quote_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/quote"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// sliceSource is a minimal TokenSource: runs of word characters become
// identifiers (or numbers), every other non-space byte is an operator.
type sliceSource struct {
	src    string
	tokens []syntax.Token
	pos    int
}

func newSliceSource(src string) *sliceSource {
	s := &sliceSource{src: src}
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\n' || c == '\t':
			i++
		case isWord(c):
			j := i
			for j < len(src) && isWord(src[j]) {
				j++
			}
			kind := syntax.TokIdentifier
			if c >= '0' && c <= '9' {
				kind = syntax.TokNumber
			}
			s.tokens = append(s.tokens, syntax.Token{Kind: kind, Text: src[i:j], Span: syntax.Span{Start: i, End: j}})
			i = j
		default:
			s.tokens = append(s.tokens, syntax.Token{Kind: syntax.TokOperator, Text: src[i : i+1], Span: syntax.Span{Start: i, End: i + 1}})
			i++
		}
	}
	return s
}

func isWord(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (s *sliceSource) Peek() syntax.Token {
	if s.pos >= len(s.tokens) {
		return syntax.EOFToken(len(s.src))
	}
	return s.tokens[s.pos]
}

func (s *sliceSource) Next() syntax.Token {
	tok := s.Peek()
	if s.pos < len(s.tokens) {
		s.pos++
	}
	return tok
}

func (s *sliceSource) Slice(start, end int) string {
	return s.src[start:end]
}

// parse consumes the operator and delimiter tokens and runs the parser.
func parse(t *testing.T, src string) (*syntax.Node, *sliceSource, error) {
	t.Helper()
	source := newSliceSource(src)
	op := source.Next()
	delim := source.Next()
	node, err := quote.NewParser(source).Parse(op, delim)
	return node, source, err
}

func TestParseStringForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		src          string
		kind         syntax.NodeKind
		value        string
		interpolated bool
	}{
		{"q braces", "q{hello world}", syntax.NodeString, "hello world", false},
		{"qq nested braces", "qq{a {b} c}", syntax.NodeString, "a {b} c", true},
		{"q symmetric", "q!one two!", syntax.NodeString, "one two", false},
		{"qq collapses runs of spaces", "qq(a    b)", syntax.NodeString, "a b", true},
		{"qx command", "qx{ls -l}", syntax.NodeCommand, "ls -l", true},
		{"q empty", "q()", syntax.NodeString, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			node, _, err := parse(t, tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, node.Kind)
			require.NotNil(t, node.String)
			assert.Equal(t, tc.value, node.String.Value)
			assert.Equal(t, tc.interpolated, node.String.Interpolated)
			assert.Equal(t, syntax.Span{Start: 0, End: len(tc.src)}, node.Span)
		})
	}
}

func TestParseWordList(t *testing.T) {
	t.Parallel()

	node, _, err := parse(t, "qw(foo bar\n  baz)")
	require.NoError(t, err)
	require.Equal(t, syntax.NodeWordList, node.Kind)

	var words []string
	for _, child := range node.Children {
		assert.Equal(t, syntax.NodeString, child.Kind)
		assert.False(t, child.String.Interpolated)
		words = append(words, child.String.Value)
	}
	assert.Equal(t, []string{"foo", "bar", "baz"}, words)
}

func TestParseRegexKeepsExactText(t *testing.T) {
	t.Parallel()

	node, source, err := parse(t, "qr{ a  b }ix;")
	require.NoError(t, err)
	require.Equal(t, syntax.NodeRegex, node.Kind)
	assert.Equal(t, "{ a  b }", node.Regex.Pattern)
	assert.Equal(t, "ix", node.Regex.Modifiers)
	assert.False(t, node.Regex.HasEmbeddedCode)
	assert.True(t, source.Peek().IsOp(";"), "modifiers must stop before ';'")

	node, _, err = parse(t, "m/x/ gc")
	require.NoError(t, err)
	assert.Equal(t, "/x/", node.Regex.Pattern)
	assert.Empty(t, node.Regex.Modifiers, "modifiers must be contiguous")
}

func TestParseRegexEmbeddedCode(t *testing.T) {
	t.Parallel()

	node, _, err := parse(t, "m{a(?{ print 1 })b}")
	require.NoError(t, err)
	assert.True(t, node.Regex.HasEmbeddedCode)
}

func TestParseNestingLimit(t *testing.T) {
	t.Parallel()

	build := func(depth int) string {
		return "q" + strings.Repeat("{", depth) + "x" + strings.Repeat("}", depth)
	}

	node, _, err := parse(t, build(quote.MaxDepth))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("{", quote.MaxDepth-1)+"x"+strings.Repeat("}", quote.MaxDepth-1), node.String.Value)

	_, _, err = parse(t, build(quote.MaxDepth+1))
	require.Error(t, err)
	assert.ErrorIs(t, err, syntax.ErrKindNestingLimit)
	assert.Contains(t, err.Error(), "nesting too deep")
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	_, _, err := parse(t, "s{a}{b}")
	require.Error(t, err)
	assert.ErrorIs(t, err, syntax.ErrKindSyntax)

	_, _, err = parse(t, "qz{a}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown quote operator")

	_, _, err = parse(t, "q{never closed")
	require.Error(t, err)
	assert.ErrorIs(t, err, syntax.ErrKindUnexpectedEOF)
}

func TestParseHashDelimitedWords(t *testing.T) {
	t.Parallel()

	node, source, err := parse(t, "qw#foo bar 42\nmy $x")
	require.NoError(t, err)
	require.Equal(t, syntax.NodeWordList, node.Kind)
	require.Len(t, node.Children, 3)
	assert.Equal(t, "42", node.Children[2].String.Value)
	assert.True(t, source.Peek().IsWord("my"))

	node, source, err = parse(t, "q#alpha beta;")
	require.NoError(t, err)
	assert.Equal(t, "alpha beta", node.String.Value)
	assert.True(t, source.Peek().IsOp(";"))
}

func TestParseMultiByteDelimiterToken(t *testing.T) {
	t.Parallel()

	source := newSliceSource(" + 1")
	op := syntax.Token{Kind: syntax.TokIdentifier, Text: "q", Span: syntax.Span{Start: 0, End: 1}}
	delim := syntax.Token{Kind: syntax.TokString, Text: "'it is'", Span: syntax.Span{Start: 1, End: 8}}

	node, err := quote.NewParser(source).Parse(op, delim)
	require.NoError(t, err)
	assert.Equal(t, "it is", node.String.Value)
	assert.Equal(t, syntax.Span{Start: 0, End: 8}, node.Span)
	assert.True(t, source.Peek().IsOp("+"))
}

func TestIsOperator(t *testing.T) {
	t.Parallel()

	for _, op := range []string{"q", "qq", "qw", "qr", "qx", "m"} {
		assert.True(t, quote.IsOperator(op), op)
	}
	for _, op := range []string{"s", "tr", "y", "qz", ""} {
		assert.False(t, quote.IsOperator(op), op)
	}
}

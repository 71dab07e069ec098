package quote_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/quote"
)

func TestExtractSubstitution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want quote.Substitution
	}{
		{"nested braces", "s{old{nested}path}{new{nested}path}gi",
			quote.Substitution{Pattern: "old{nested}path", Replacement: "new{nested}path", Modifiers: "gi"}},
		{"slashes", "s/foo/bar/", quote.Substitution{Pattern: "foo", Replacement: "bar"}},
		{"escaped delimiter", `s/a\/b/c/g`, quote.Substitution{Pattern: `a\/b`, Replacement: "c", Modifiers: "g"}},
		{"mixed pairs with space", "s{a} [b]x", quote.Substitution{Pattern: "a", Replacement: "b", Modifiers: "x"}},
		{"empty replacement", "s#\\s+##g", quote.Substitution{Pattern: `\s+`, Modifiers: "g"}},
		{"trailing text ignored", "s/a/b/e;", quote.Substitution{Pattern: "a", Replacement: "b", Modifiers: "e"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := quote.ExtractSubstitution(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractSubstitutionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		strict bool
		want   quote.SubstitutionErrorKind
	}{
		{"no delimiter", "s", false, quote.MissingDelimiter},
		{"word delimiter", "sxaxbx", false, quote.MissingDelimiter},
		{"missing replacement symmetric", "s/a/", false, quote.MissingReplacement},
		{"missing replacement paired", "s{a}", false, quote.MissingReplacement},
		{"unterminated pattern", "s{a", false, quote.MissingClosingDelimiter},
		{"unterminated replacement", "s/a/b", false, quote.MissingClosingDelimiter},
		{"strict empty pattern", "s//b/", true, quote.MissingPattern},
		{"strict bad modifier", "s/a/b/gz", true, quote.InvalidModifier},
		{"strict digit after modifiers", "s/a/b/g2", true, quote.InvalidModifier},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var err error
			if tc.strict {
				_, err = quote.ExtractSubstitutionStrict(tc.text)
			} else {
				_, err = quote.ExtractSubstitution(tc.text)
			}
			require.Error(t, err)

			var subErr *quote.SubstitutionError
			require.True(t, errors.As(err, &subErr), "want *SubstitutionError, got %T", err)
			assert.Equal(t, tc.want, subErr.Kind)
		})
	}
}

func TestExtractSubstitutionStrictAcceptsValidModifiers(t *testing.T) {
	t.Parallel()

	got, err := quote.ExtractSubstitutionStrict("s/a/b/gimsxe")
	require.NoError(t, err)
	assert.Equal(t, "gimsxe", got.Modifiers)
}

func TestExtractTransliteration(t *testing.T) {
	t.Parallel()

	got, err := quote.ExtractTransliteration("tr/a-z/A-Z/cd")
	require.NoError(t, err)
	assert.Equal(t, quote.Transliteration{SearchList: "a-z", ReplaceList: "A-Z", Modifiers: "cd"}, got)

	got, err = quote.ExtractTransliteration("y{abc}{xyz}")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.SearchList)
	assert.Equal(t, "xyz", got.ReplaceList)

	_, err = quote.ExtractTransliteration("tr/a/b/g")
	var subErr *quote.SubstitutionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, quote.InvalidModifier, subErr.Kind)
	assert.Equal(t, "g", subErr.Detail)
}

func TestExtractRegexParts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text      string
		pattern   string
		modifiers string
	}{
		{"/foo/i", "/foo/", "i"},
		{"m{a{2}b}gx", "{a{2}b}", "gx"},
		{"qr!x!", "!x!", ""},
		{"m <a>", "<a>", ""},
	}

	for _, tc := range tests {
		parts, err := quote.ExtractRegexParts(tc.text)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.pattern, parts.Pattern(), tc.text)
		assert.Equal(t, tc.modifiers, parts.Modifiers, tc.text)
	}

	_, err := quote.ExtractRegexParts("/never")
	assert.ErrorIs(t, err, quote.ErrUnterminated)
}

func TestScanDelimited(t *testing.T) {
	t.Parallel()

	body, end, err := quote.ScanDelimited("{a{b}c}rest", 1, '{')
	require.NoError(t, err)
	assert.Equal(t, "a{b}c", body)
	assert.Equal(t, 7, end)

	deep := "{" + strings.Repeat("(", 10) + strings.Repeat("{", quote.MaxDepth) + strings.Repeat("}", quote.MaxDepth) + "}"
	_, _, err = quote.ScanDelimited(deep, 1, '{')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting too deep")

	body, _, err = quote.ScanDelimited(`|a\|b|`, 1, '|')
	require.NoError(t, err)
	assert.Equal(t, `a\|b`, body)
}

func TestHasEmbeddedCode(t *testing.T) {
	t.Parallel()

	assert.True(t, quote.HasEmbeddedCode(`a(?{ $x++ })b`))
	assert.True(t, quote.HasEmbeddedCode(`(??{ $re })`))
	assert.False(t, quote.HasEmbeddedCode(`a(?:b)c`))
	assert.False(t, quote.HasEmbeddedCode(`\(?{`))
}

func TestClosingDelimiter(t *testing.T) {
	t.Parallel()

	pairs := map[byte]byte{'{': '}', '[': ']', '(': ')', '<': '>', '/': '/', '#': '#', '|': '|'}
	for open, want := range pairs {
		assert.Equal(t, want, quote.ClosingDelimiter(open), string(open))
	}
	assert.True(t, quote.NewDelimiter('{').Paired())
	assert.False(t, quote.NewDelimiter('!').Paired())
}

func TestOpensBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rest     string
		adjacent bool
		want     bool
	}{
		{"{a}", true, true},
		{"{a}", false, true},
		{"/a/", true, true},
		{"/a/", false, false},
		{"=> 1", true, false},
		{"=a=", true, true},
		{"}", true, false},
		{", 2", true, false},
		{"abc", true, false},
		{"", true, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, quote.OpensBody(tc.rest, tc.adjacent), "%q adjacent=%v", tc.rest, tc.adjacent)
	}
}

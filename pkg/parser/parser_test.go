package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/parser"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// shape renders a tree as nested (Kind op name ...) groups.
func shape(n *syntax.Node) string {
	var b strings.Builder
	var walk func(*syntax.Node)
	walk = func(n *syntax.Node) {
		b.WriteString("(" + n.Kind.String())
		if n.Op != "" {
			b.WriteString(" " + n.Op)
		}
		if n.Name != "" {
			b.WriteString(" " + n.Name)
		}
		for _, c := range n.Children {
			b.WriteByte(' ')
			walk(c)
		}
		b.WriteByte(')')
	}
	walk(n)
	return b.String()
}

func mustParse(t *testing.T, src string, opts ...parser.Option) *syntax.Snapshot {
	t.Helper()
	snap, err := parser.Parse("test.pl", src, opts...)
	require.NoError(t, err)
	require.NotNil(t, snap.Root)
	return snap
}

func TestParseShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "pragma declaration and print",
			src:  "use strict;\nmy $x = 1;\nprint $x;\n",
			want: "(Program (Use use strict) (Assignment = (Declaration my (Variable $x)) (Number)) (Call print (Variable $x)))",
		},
		{
			name: "precedence",
			src:  "my $x = 1 + 2 * 3;",
			want: "(Program (Assignment = (Declaration my (Variable $x)) (Binary + (Number) (Binary * (Number) (Number)))))",
		},
		{
			name: "assignment is right associative",
			src:  "$a = $b = 3;",
			want: "(Program (Assignment = (Variable $a) (Assignment = (Variable $b) (Number))))",
		},
		{
			name: "statement modifier",
			src:  "print \"yes\" if $x;",
			want: "(Program (Modifier if (Call print (String)) (Variable $x)))",
		},
		{
			name: "ternary",
			src:  "$x ? 1 : 2;",
			want: "(Program (Ternary (Variable $x) (Number) (Number)))",
		},
		{
			name: "if elsif else",
			src:  "if ($x) { 1; } elsif ($y) { 2; } else { 3; }",
			want: "(Program (If if (Variable $x) (Block (Number)) (If elsif (Variable $y) (Block (Number)) (Block (Number)))))",
		},
		{
			name: "foreach with lexical",
			src:  "foreach my $item (@list) { print $item; }",
			want: "(Program (Foreach foreach (Declaration my (Variable $item)) (Variable @list) (Block (Call print (Variable $item)))))",
		},
		{
			name: "c-style for",
			src:  "for (my $i = 0; $i < 10; $i++) { }",
			want: "(Program (For for (Assignment = (Declaration my (Variable $i)) (Number)) (Binary < (Variable $i) (Number)) (Postfix ++ (Variable $i)) (Block)))",
		},
		{
			name: "named sub",
			src:  "sub greet { my ($name) = @_; return \"Hello, $name\"; }",
			want: "(Program (Sub sub greet (Block (Assignment = (Declaration my (List () (Variable $name))) (Variable @_)) (Return (String)))))",
		},
		{
			name: "parenthesized list",
			src:  "my @a = (1, 2, 3);",
			want: "(Program (Assignment = (Declaration my (Variable @a)) (List () (Number) (Number) (Number))))",
		},
		{
			name: "anonymous hash and array",
			src:  "my $h = { a => 1, b => [1, 2] };",
			want: "(Program (Assignment = (Declaration my (Variable $h)) (HashRef (Bareword a) (Number) (Bareword b) (ArrayRef (Number) (Number)))))",
		},
		{
			name: "method call and subscripts",
			src:  "$obj->method(1)->{key}[0];",
			want: "(Program (Subscript [ (Subscript { (MethodCall method (Variable $obj) (Number)) (Bareword key)) (Number)))",
		},
		{
			name: "package block",
			src:  "package Foo { sub new { return bless {}, shift; } }",
			want: "(Program (Package Foo (Block (Sub sub new (Block (Return (Call bless (HashRef) (Call shift))))))))",
		},
		{
			name: "labelled loop",
			src:  "OUTER: for my $i (1..3) { next OUTER; }",
			want: "(Program (Foreach for OUTER (Declaration my (Variable $i)) (Binary .. (Number) (Number)) (Block (LoopControl next OUTER))))",
		},
		{
			name: "data section",
			src:  "print 1;\n__END__\ngarbage (((\n",
			want: "(Program (Call print (Number)) (DataSection))",
		},
		{
			name: "empty statements",
			src:  ";;",
			want: "(Program (Empty) (Empty))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snap := mustParse(t, tt.src)
			assert.Equal(t, tt.want, shape(snap.Root))
		})
	}
}

func TestParseRootCoversContent(t *testing.T) {
	t.Parallel()

	src := "my $x = 1;\n\n# trailing comment\n"
	snap := mustParse(t, src)
	assert.Equal(t, syntax.Span{Start: 0, End: len(src)}, snap.Root.Span)
	assert.Equal(t, "test.pl", snap.Path)
	assert.Equal(t, src, snap.Content)
	assert.Len(t, snap.Lines, 4)
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()

	src := "use v5.36;\nmy %h = (a => [1, 2], b => { c => 3 });\nprint <<EOF . 'x';\nbody $h{a}\nEOF\nfor my $k (sort keys %h) { say $k unless $k eq 'b'; }\n"
	first, err1 := parser.Parse("a.pl", src)
	second, err2 := parser.Parse("a.pl", src)
	require.NoError(t, err1)
	require.NoError(t, err2)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("snapshots differ (-first +second):\n%s", diff)
	}
}

func TestParseHeredoc(t *testing.T) {
	t.Parallel()

	src := "print <<EOF;\nHello, World!\nThis is a heredoc.\nEOF\nprint 2;\n"
	snap := mustParse(t, src)

	assert.Equal(t, "(Program (Call print (Heredoc EOF)) (Call print (Number)))", shape(snap.Root))

	doc := syntax.FindFirst(snap.Root, func(n *syntax.Node) bool { return n.Kind == syntax.NodeHeredoc })
	require.NotNil(t, doc)
	require.NotNil(t, doc.Heredoc)
	assert.Equal(t, "Hello, World!\nThis is a heredoc.", doc.Heredoc.Content)
	assert.True(t, doc.Heredoc.Terminated)
	assert.True(t, doc.Heredoc.Interpolated)
	assert.Equal(t, "<<EOF", doc.Text(src))

	second := snap.Root.Children[1]
	assert.Equal(t, "print 2", second.Text(src))

	require.Len(t, snap.Heredocs, 1)
	assert.Equal(t, 1, snap.Heredocs[0].Line)
	assert.Equal(t, 2, snap.Heredocs[0].ContentLine)
}

func TestParseTokensUseOriginalOffsets(t *testing.T) {
	t.Parallel()

	src := "print <<EOF;\nbody\nEOF\nmy $after = 1;\n"
	snap := mustParse(t, src)

	var texts []string
	for _, tok := range snap.Tokens {
		if tok.Kind == syntax.TokHeredocPlaceholder {
			assert.Equal(t, "<<EOF", tok.Span.Text(src))
			continue
		}
		texts = append(texts, tok.Span.Text(src))
		assert.Equal(t, tok.Text, tok.Span.Text(src))
	}
	assert.Equal(t, []string{"print", ";", "my", "$after", "=", "1", ";"}, texts)
}

func TestParseIndentedHeredocWithDanglingTerminator(t *testing.T) {
	t.Parallel()

	src := "my $t = <<~END;\n    never closed\n"
	snap, err := parser.Parse("t.pl", src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, syntax.ErrKindDanglingHeredoc))
	require.Len(t, snap.Heredocs, 1)
	assert.False(t, snap.Heredocs[0].Terminated)
}

func TestParseDeepNesting(t *testing.T) {
	t.Parallel()

	const depth = 1000
	src := "my $x = " + strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth) + ";"
	snap := mustParse(t, src)
	assert.Greater(t, snap.Root.Depth(), depth)
}

func TestParseNestingLimit(t *testing.T) {
	t.Parallel()

	src := "my $x = " + strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100) + ";\nprint 1;\n"
	snap, err := parser.Parse("deep.pl", src, parser.WithMaxDepth(50))
	require.Error(t, err)
	assert.True(t, errors.Is(err, syntax.ErrKindNestingLimit))
	assert.Equal(t, 1, snap.ErrorsByKind()[syntax.ErrNestingLimit])

	last := snap.Root.Children[len(snap.Root.Children)-1]
	assert.Equal(t, syntax.NodeCall, last.Kind)
}

func TestParseRecovery(t *testing.T) {
	t.Parallel()

	src := "my $x = ;\nmy $y = ;\nprint 1;\n"
	snap, err := parser.Parse("broken.pl", src)
	require.Error(t, err)
	require.Len(t, snap.Errors, 2)
	assert.True(t, errors.Is(err, syntax.ErrKindSyntax))
	assert.Less(t, snap.Errors[0].Span.Start, snap.Errors[1].Span.Start)

	require.Len(t, snap.Root.Children, 3)
	assert.Equal(t, syntax.NodeError, snap.Root.Children[0].Kind)
	assert.Equal(t, syntax.NodeError, snap.Root.Children[1].Kind)
	assert.Equal(t, syntax.NodeCall, snap.Root.Children[2].Kind)

	broken := snap.Root.Children[0]
	assert.Equal(t, "my $x = ;", broken.Text(src))
	assert.Contains(t, broken.Message, "expected expression")
	require.Len(t, broken.Children, 1)
	assert.Equal(t, syntax.NodeDeclaration, broken.Children[0].Kind)
}

func TestParseRecoveryInsideBlock(t *testing.T) {
	t.Parallel()

	src := "sub f {\n  my $x = ;\n  return 1;\n}\nprint 2;\n"
	snap, err := parser.Parse("f.pl", src)
	require.Error(t, err)
	assert.Equal(t,
		"(Program (Sub sub f (Block (Error (Declaration my (Variable $x))) (Return (Number)))) (Call print (Number)))",
		shape(snap.Root))
}

func TestParseErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		kind error
	}{
		{"unterminated string", "my $x = \"unterminated;\n", syntax.ErrKindLexical},
		{"missing closing brace", "sub f { print 1;\n", syntax.ErrKindUnexpectedEOF},
		{"missing semicolon", "my $x = 1 my $y = 2;", syntax.ErrKindSyntax},
		{"stray closing brace", "}\nprint 1;\n", syntax.ErrKindSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snap, err := parser.Parse("e.pl", tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.True(t, snap.HasErrors())
			assert.NotNil(t, snap.Root)
		})
	}
}

func TestParseUseVersions(t *testing.T) {
	t.Parallel()

	src := "use v5.36;\nuse 5.010_001;\nuse Foo::Bar 1.2 qw(x);\nno warnings;\n"
	snap := mustParse(t, src)
	require.Len(t, snap.Root.Children, 4)

	assert.Equal(t, "v5.36.0", snap.Root.Children[0].Value)
	assert.Equal(t, "v5.10.1", snap.Root.Children[1].Value)

	mod := snap.Root.Children[2]
	assert.Equal(t, "Foo::Bar", mod.Name)
	assert.Equal(t, "1.2", mod.Value)
	require.Len(t, mod.Children, 1)
	assert.Equal(t, syntax.NodeWordList, mod.Children[0].Kind)

	no := snap.Root.Children[3]
	assert.Equal(t, "no", no.Op)
	assert.Equal(t, "warnings", no.Name)
}

func TestParseQuoteOperators(t *testing.T) {
	t.Parallel()

	src := "my @w = qw(a b c);\nmy $s = q{single};\n$s =~ s/foo/bar/g;\n$s =~ tr/a-z/A-Z/;\n$s =~ m{a(?{ 1 })}x;\n"
	snap := mustParse(t, src)

	words := syntax.FindByKind(snap.Root, syntax.NodeWordList)
	require.Len(t, words, 1)
	assert.Equal(t, "qw", words[0].Op)
	require.Len(t, words[0].Children, 3)
	assert.Equal(t, "c", words[0].Children[2].String.Value)

	str := syntax.FindFirst(snap.Root, func(n *syntax.Node) bool { return n.Kind == syntax.NodeString && n.Op == "q" })
	require.NotNil(t, str)
	assert.Equal(t, "single", str.String.Value)
	assert.False(t, str.String.Interpolated)

	subst := syntax.FindByKind(snap.Root, syntax.NodeSubstitution)
	require.Len(t, subst, 1)
	assert.Equal(t, &syntax.SubstAttrs{Pattern: "foo", Replacement: "bar", Modifiers: "g"}, subst[0].Subst)

	tr := syntax.FindByKind(snap.Root, syntax.NodeTransliteration)
	require.Len(t, tr, 1)
	assert.Equal(t, "tr", tr[0].Op)
	assert.Equal(t, "a-z", tr[0].Translit.SearchList)

	re := syntax.FindByKind(snap.Root, syntax.NodeRegex)
	require.Len(t, re, 1)
	assert.Equal(t, "{a(?{ 1 })}", re[0].Regex.Pattern)
	assert.Equal(t, "x", re[0].Regex.Modifiers)
	assert.True(t, re[0].Regex.HasEmbeddedCode)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	src := "format STDOUT =\n@<<<< @>>>>\n$name, $value\n.\nprint 1;\n"
	snap := mustParse(t, src)
	require.Len(t, snap.Root.Children, 2)

	format := snap.Root.Children[0]
	assert.Equal(t, syntax.NodeFormat, format.Kind)
	assert.Equal(t, "STDOUT", format.Name)
	require.NotNil(t, format.String)
	assert.Equal(t, "@<<<< @>>>>\n$name, $value\n", format.String.Value)
	assert.Equal(t, syntax.NodeCall, snap.Root.Children[1].Kind)
}

func TestParsePrintFilehandle(t *testing.T) {
	t.Parallel()

	snap := mustParse(t, "print STDERR \"oops\\n\";\n")
	call := snap.Root.Children[0]
	assert.Equal(t, "print", call.Name)
	assert.Equal(t, "STDERR", call.Value)
	require.Len(t, call.Children, 1)
	assert.Equal(t, syntax.NodeString, call.Children[0].Kind)
}

func TestParsePhaserAndForwardDeclaration(t *testing.T) {
	t.Parallel()

	snap := mustParse(t, "sub later;\nBEGIN { 1; }\n")
	assert.Equal(t, "(Program (Sub sub later) (Sub phaser BEGIN (Block (Number))))", shape(snap.Root))
}

func TestParseFrom(t *testing.T) {
	t.Parallel()

	src := "my $a = 1;\nmy $b = 2;\n"
	offset := strings.Index(src, "my $b")
	snap, err := parser.ParseFrom("p.pl", src, offset)
	require.NoError(t, err)

	assert.Equal(t, syntax.Span{Start: offset, End: len(src)}, snap.Root.Span)
	require.Len(t, snap.Root.Children, 1)
	assert.Equal(t, "my $b = 2", snap.Root.Children[0].Text(src))
	for _, tok := range snap.Tokens {
		assert.GreaterOrEqual(t, tok.Span.Start, offset)
	}
}

func TestParseFromClampsOffset(t *testing.T) {
	t.Parallel()

	snap, err := parser.ParseFrom("p.pl", "print 1;", 99)
	require.NoError(t, err)
	assert.Empty(t, snap.Root.Children)
	assert.Equal(t, syntax.Span{Start: 8, End: 8}, snap.Root.Span)
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	snap := mustParse(t, "")
	assert.Equal(t, syntax.NodeProgram, snap.Root.Kind)
	assert.Empty(t, snap.Root.Children)
	assert.Empty(t, snap.Tokens)
}

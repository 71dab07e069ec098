package pretty_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/internal/ui/pretty"
	"github.com/yaklabco/perlparse/pkg/config"
	"github.com/yaklabco/perlparse/pkg/runner"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

func brokenSnapshot() (*syntax.Snapshot, *syntax.Error) {
	snap := syntax.NewSnapshot("lib/Foo.pm", "my $x = ;\nprint $x;\n")
	perr := &syntax.Error{
		Kind:     syntax.ErrSyntax,
		Span:     syntax.Span{Start: 8, End: 9},
		Expected: "expression",
		Found:    ";",
	}
	snap.Errors = []*syntax.Error{perr}
	return snap, perr
}

func TestIsColorEnabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.True(t, pretty.IsColorEnabled(config.ColorAlways, &buf))
	assert.False(t, pretty.IsColorEnabled(config.ColorNever, &buf))
	assert.False(t, pretty.IsColorEnabled(config.ColorAuto, &buf), "a buffer is not a terminal")
}

func TestTerminalWidth_NonTerminal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, pretty.TerminalWidth(&bytes.Buffer{}))
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *syntax.Error
		want string
	}{
		{
			name: "expected and found",
			err:  &syntax.Error{Kind: syntax.ErrSyntax, Expected: "';'", Found: "}"},
			want: `expected ';', found "}"`,
		},
		{
			name: "end of input",
			err:  &syntax.Error{Kind: syntax.ErrUnexpectedEOF, Expected: "'}'"},
			want: "expected '}', found end of input",
		},
		{
			name: "message",
			err:  &syntax.Error{Kind: syntax.ErrDanglingHeredoc, Message: "no terminator for EOT"},
			want: "no terminator for EOT",
		},
		{
			name: "kind only",
			err:  &syntax.Error{Kind: syntax.ErrLexical},
			want: "lexical error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pretty.Describe(tt.err))
		})
	}
}

func TestFormatParseError(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)
	snap, perr := brokenSnapshot()

	out := styles.FormatParseError("lib/Foo.pm", snap, perr, false)
	assert.Contains(t, out, "lib/Foo.pm:1:9")
	assert.Contains(t, out, `expected expression, found ";"`)
	assert.Contains(t, out, "(syntax error)")
	assert.NotContains(t, out, "^")

	out = styles.FormatParseError("lib/Foo.pm", snap, perr, true)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "        my $x = ;", lines[1])
	assert.Equal(t, "                ^", lines[2])
}

func TestFormatFileHeader(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)
	assert.Equal(t, "a.pl", styles.FormatFileHeader("a.pl", 0))
	assert.Equal(t, "a.pl (1 error)", styles.FormatFileHeader("a.pl", 1))
	assert.Equal(t, "a.pl (4 errors)", styles.FormatFileHeader("a.pl", 4))
}

func TestFormatSummaryOneLine(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)

	clean := styles.FormatSummaryOneLine(runner.Stats{FilesParsed: 1})
	assert.Equal(t, "No parse errors (1 file parsed)\n", clean)

	broken := styles.FormatSummaryOneLine(runner.Stats{
		FilesParsed:     10,
		FilesWithErrors: 2,
		ErrorsTotal:     3,
		FilesFailed:     1,
	})
	assert.Equal(t, "3 errors in 2 files (10 files parsed), 1 unreadable\n", broken)
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)

	out := styles.FormatSummary(runner.Stats{
		FilesParsed:     4,
		FilesWithErrors: 1,
		ErrorsTotal:     3,
		ErrorsByKind:    map[string]int{"syntax error": 2, "dangling heredoc": 1},
		Tokens:          120,
		Heredocs:        2,
	})

	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "Files parsed:")
	assert.Contains(t, out, "Files with errors:")
	assert.Contains(t, out, "Parse errors:")
	assert.Less(t, strings.Index(out, "dangling heredoc:"), strings.Index(out, "syntax error:"))
	assert.Contains(t, out, "Parsed with errors")
	assert.NotContains(t, out, "Files unreadable")

	clean := styles.FormatSummary(runner.Stats{FilesParsed: 1})
	assert.Contains(t, clean, "All files parsed cleanly")

	failed := styles.FormatSummary(runner.Stats{FilesFailed: 1})
	assert.Contains(t, failed, "Files unreadable:")
	assert.Contains(t, failed, "Some files could not be read")
}

func TestTable(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)
	table := pretty.NewTable(styles, 80,
		pretty.Column{Header: "KIND"},
		pretty.Column{Header: "TEXT", Flex: true},
	)
	assert.Empty(t, table.String())

	table.AddRow("Identifier", "print")
	table.AddRow("Variable", "$x")
	require.Equal(t, 2, table.Len())

	lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, " KIND        TEXT", lines[0])
	assert.Equal(t, " Identifier  print", lines[2])
	assert.Equal(t, " Variable    $x", lines[3])
	assert.True(t, strings.HasPrefix(lines[1], "===="))
}

func TestTable_TruncatesFlexColumn(t *testing.T) {
	t.Parallel()

	styles := pretty.NewStyles(false)
	table := pretty.NewTable(styles, 40,
		pretty.Column{Header: "FILE", KeepEnd: true},
		pretty.Column{Header: "MESSAGE", Flex: true},
	)
	table.AddRow("lib/Foo.pm", strings.Repeat("x", 60))

	out := table.String()
	assert.Contains(t, out, "...")
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.LessOrEqual(t, len(line), 40)
	}
}

func TestErrorTable(t *testing.T) {
	t.Parallel()

	snap, _ := brokenSnapshot()
	result := &runner.Result{Files: []runner.FileOutcome{
		{Path: "/proj/lib/Foo.pm", RelPath: "lib/Foo.pm", Snapshot: snap},
		{Path: "/proj/clean.pl", RelPath: "clean.pl", Snapshot: syntax.NewSnapshot("clean.pl", "1;\n")},
	}}

	table := pretty.ErrorTable(pretty.NewStyles(false), 120, result)
	require.Equal(t, 1, table.Len())

	out := table.String()
	assert.Contains(t, out, "lib/Foo.pm")
	assert.Contains(t, out, "1:9")
	assert.Contains(t, out, "syntax error")
	assert.NotContains(t, out, "clean.pl")

	assert.Zero(t, pretty.ErrorTable(pretty.NewStyles(false), 120, nil).Len())
}

package session_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/parser"
	"github.com/yaklabco/perlparse/pkg/session"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

const uri = "file:///work/lib/Foo.pm"

func assertSameAsFullParse(t *testing.T, snap *syntax.Snapshot, content string) {
	t.Helper()
	full, _ := parser.Parse(uri, content)
	if diff := cmp.Diff(full, snap); diff != "" {
		t.Errorf("incremental snapshot differs from a full parse (-full +incremental):\n%s", diff)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	snap, err := m.Open(uri, "use strict;\nmy $x = 1;\n")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Root.Children, 2)

	info, ok := m.Info(uri)
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, info.ID)
	assert.Equal(t, 0, info.Version)

	stats := m.Stats()
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, int64(1), stats.FullParses)
}

func TestOpenReportsParseErrors(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	snap, err := m.Open(uri, "my $x = ;\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, syntax.ErrKindSyntax))
	assert.True(t, snap.HasErrors())
}

func TestChangeAppendReusesStatements(t *testing.T) {
	t.Parallel()

	content := "my $a = 1;\nmy $b = 2;\nmy $c = 3;\n"
	m := session.NewManager()
	_, err := m.Open(uri, content)
	require.NoError(t, err)

	added := "print $a;\n"
	snap, err := m.Change(uri, session.Edit{Start: len(content), End: len(content), Text: added})
	require.NoError(t, err)

	assert.Len(t, snap.Root.Children, 4)
	assertSameAsFullParse(t, snap, content+added)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.IncrementalParses)
	assert.Equal(t, int64(3), stats.ReusedStatements)

	info, _ := m.Info(uri)
	assert.Equal(t, 1, info.Version)
}

func TestChangeInMiddleReparsesRemainder(t *testing.T) {
	t.Parallel()

	content := "my $a = 1;\nmy $b = 2;\nmy $c = 3;\n"
	m := session.NewManager()
	_, err := m.Open(uri, content)
	require.NoError(t, err)

	at := strings.Index(content, "2;")
	snap, err := m.Change(uri, session.Edit{Start: at, End: at + 1, Text: "22"})
	require.NoError(t, err)

	want := "my $a = 1;\nmy $b = 22;\nmy $c = 3;\n"
	assert.Equal(t, want, snap.Content)
	assertSameAsFullParse(t, snap, want)
	assert.Equal(t, int64(1), m.Stats().ReusedStatements)
}

func TestChangeInFirstStatementParsesFully(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	_, err := m.Open(uri, "my $a = 1;\nmy $b = 2;\n")
	require.NoError(t, err)

	snap, err := m.Change(uri, session.Edit{Start: 3, End: 5, Text: "$z"})
	require.NoError(t, err)
	assertSameAsFullParse(t, snap, "my $z = 1;\nmy $b = 2;\n")

	stats := m.Stats()
	assert.Equal(t, int64(0), stats.IncrementalParses)
	assert.Equal(t, int64(2), stats.FullParses)
}

func TestChangeWithHeredocParsesFully(t *testing.T) {
	t.Parallel()

	content := "my $a = 1;\nprint <<EOF;\nbody\nEOF\n"
	m := session.NewManager()
	_, err := m.Open(uri, content)
	require.NoError(t, err)

	snap, err := m.Change(uri, session.Edit{Start: len(content), End: len(content), Text: "print 2;\n"})
	require.NoError(t, err)
	require.Len(t, snap.Heredocs, 1)
	assert.Equal(t, "body", snap.Heredocs[0].Content)

	stats := m.Stats()
	assert.Equal(t, int64(0), stats.IncrementalParses)
	assert.Equal(t, int64(2), stats.FullParses)
}

func TestChangeKeepsErrorsAfterReusedPrefix(t *testing.T) {
	t.Parallel()

	content := "my $a = 1;\nmy $b = ;\n"
	m := session.NewManager()
	_, err := m.Open(uri, content)
	require.Error(t, err)

	snap, err := m.Change(uri, session.Edit{Start: len(content), End: len(content), Text: "print 1;\n"})
	require.Error(t, err)
	require.Len(t, snap.Errors, 1)
	assertSameAsFullParse(t, snap, content+"print 1;\n")
}

func TestChangeToIdenticalContentHitsCache(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	first, err := m.Open(uri, "print 1;\n")
	require.NoError(t, err)

	second, err := m.Change(uri, session.Edit{Start: 6, End: 7, Text: "1"})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), m.Stats().CacheHits)
}

func TestChangeRejectsInvalidEdits(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	_, err := m.Open(uri, "print 1;\n")
	require.NoError(t, err)

	tests := []session.Edit{
		{Start: -1, End: 0},
		{Start: 5, End: 4},
		{Start: 0, End: 100},
	}
	for _, e := range tests {
		_, err := m.Change(uri, e)
		assert.True(t, errors.Is(err, session.ErrInvalidEdit), "%+v", e)
	}

	info, _ := m.Info(uri)
	assert.Equal(t, 0, info.Version)
	snap, ok := m.Snapshot(uri)
	require.True(t, ok)
	assert.Equal(t, "print 1;\n", snap.Content)
}

func TestSequentialEditsInOneChange(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	_, err := m.Open(uri, "my $a = 1;\n")
	require.NoError(t, err)

	snap, err := m.Change(uri,
		session.Edit{Start: 11, End: 11, Text: "my $b = 2;\n"},
		session.Edit{Start: 8, End: 9, Text: "5"},
	)
	require.NoError(t, err)
	assert.Equal(t, "my $a = 5;\nmy $b = 2;\n", snap.Content)
}

func TestUnknownDocument(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	_, err := m.Change("file:///missing.pl", session.Edit{})
	assert.True(t, errors.Is(err, session.ErrUnknownDocument))
	assert.True(t, errors.Is(m.Close("file:///missing.pl"), session.ErrUnknownDocument))

	_, ok := m.Snapshot("file:///missing.pl")
	assert.False(t, ok)
	_, ok = m.Info("file:///missing.pl")
	assert.False(t, ok)
}

func TestCloseAndReopenUsesCache(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	first, err := m.Open(uri, "print 1;\n")
	require.NoError(t, err)
	require.NoError(t, m.Close(uri))

	_, ok := m.Snapshot(uri)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Stats().Documents)

	again, err := m.Open(uri, "print 1;\n")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, int64(1), m.Stats().CacheHits)
}

func TestReopenGetsNewSessionID(t *testing.T) {
	t.Parallel()

	m := session.NewManager()
	_, _ = m.Open(uri, "1;")
	first, _ := m.Info(uri)
	_, _ = m.Open(uri, "2;")
	second, _ := m.Info(uri)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestConcurrentDocuments(t *testing.T) {
	t.Parallel()

	m := session.NewManager(session.WithParserOptions(parser.WithMaxDepth(100)))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := fmt.Sprintf("file:///doc%d.pl", i)
			content := "my $x = 1;\n"
			if _, err := m.Open(doc, content); err != nil {
				t.Errorf("open %s: %v", doc, err)
				return
			}
			for j := 0; j < 20; j++ {
				line := fmt.Sprintf("print %d;\n", j)
				if _, err := m.Change(doc, session.Edit{Start: len(content), End: len(content), Text: line}); err != nil {
					t.Errorf("change %s: %v", doc, err)
					return
				}
				content += line
			}
			snap, ok := m.Snapshot(doc)
			if !ok || len(snap.Root.Children) != 21 {
				t.Errorf("%s: unexpected snapshot", doc)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, m.Stats().Documents)
}

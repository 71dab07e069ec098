package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/session"
	"github.com/yaklabco/perlparse/pkg/watch"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		old     string
		updated string
		want    session.Edit
	}{
		{"append", "my $x;\n", "my $x;\nmy $y;\n", session.Edit{Start: 7, End: 7, Text: "my $y;\n"}},
		{"prepend", "1;\n", "use strict;\n1;\n", session.Edit{Start: 0, End: 0, Text: "use strict;\n"}},
		{"replace middle", "my $a = 1;\n", "my $a = 42;\n", session.Edit{Start: 8, End: 9, Text: "42"}},
		{"delete", "foo(); bar();\n", "foo();\n", session.Edit{Start: 6, End: 13, Text: ""}},
		{"repeated bytes", "aaa", "aaaa", session.Edit{Start: 3, End: 3, Text: "a"}},
		{"to empty", "x;", "", session.Edit{Start: 0, End: 2, Text: ""}},
		{"from empty", "", "x;", session.Edit{Start: 0, End: 0, Text: "x;"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := watch.Diff(tt.old, tt.updated)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.updated, tt.old[:got.Start]+got.Text+tt.old[got.End:])
		})
	}
}

func TestWatcher_SyncAndRemove(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/a.pl", []byte("my $x = 1;\nprint $x;\n"), 0o644))

	manager := session.NewManager()
	w := watch.New(manager, watch.WithFs(fs))

	updates := w.Load([]string{"/proj/a.pl", "/proj/missing.pl"})
	require.Len(t, updates, 2)
	require.NoError(t, updates[0].Err)
	require.NotNil(t, updates[0].Snapshot)
	assert.Zero(t, updates[0].Version)
	assert.False(t, updates[0].Snapshot.HasErrors())
	require.Error(t, updates[1].Err)
	assert.Equal(t, []string{"/proj/a.pl"}, w.Tracked())

	require.NoError(t, afero.WriteFile(fs, "/proj/a.pl", []byte("my $x = 1;\nprint $x;\nprint 2;\n"), 0o644))
	update := w.Sync("/proj/a.pl")
	require.NoError(t, update.Err)
	assert.Equal(t, 1, update.Version)
	assert.Equal(t, "my $x = 1;\nprint $x;\nprint 2;\n", update.Snapshot.Content)
	assert.Len(t, update.Snapshot.Root.Children, 3)

	same := w.Sync("/proj/a.pl")
	assert.Equal(t, 1, same.Version, "unchanged content is not an edit")
	assert.Same(t, update.Snapshot, same.Snapshot)

	assert.Positive(t, manager.Stats().IncrementalParses)

	removed := w.Remove("/proj/a.pl")
	assert.True(t, removed.Removed)
	assert.Empty(t, w.Tracked())
	_, ok := manager.Snapshot("/proj/a.pl")
	assert.False(t, ok)
}

func TestWatcher_Run(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "script.pl")
	require.NoError(t, os.WriteFile(path, []byte("print 1;\n"), 0o644))

	w := watch.New(session.NewManager(), watch.WithDebounce(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan watch.Update)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, []string{path}, updates) }()

	next := func() watch.Update {
		select {
		case update := <-updates:
			return update
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for update")
			return watch.Update{}
		}
	}

	initial := next()
	require.NoError(t, initial.Err)
	assert.Equal(t, path, initial.Path)
	assert.False(t, initial.Snapshot.HasErrors())

	require.NoError(t, os.WriteFile(path, []byte("print 1;\nprint (;\n"), 0o644))
	var changed watch.Update
	for changed.Snapshot == nil || !changed.Snapshot.HasErrors() {
		changed = next()
		require.NoError(t, changed.Err)
	}
	assert.Positive(t, changed.Version)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

package fsutil_test

import (
	"crypto/sha256"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/fsutil"
)

func TestReadFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/a.pl", []byte("print 1;\n"), 0o600))
	require.NoError(t, fs.MkdirAll("/src/lib", 0o755))

	content, info, err := fsutil.ReadFile(fs, "/src/a.pl")
	require.NoError(t, err)
	assert.Equal(t, "print 1;\n", string(content))
	assert.Equal(t, "/src/a.pl", info.Path)
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, sha256.Sum256(content), info.Hash)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", "/src/missing.pl", fsutil.ErrNotFound},
		{"directory", "/src/lib", fsutil.ErrIsDirectory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := fsutil.ReadFile(fs, tt.path)
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestWriteAtomic(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0o755))

	require.NoError(t, fsutil.WriteAtomic(fs, "/out/config.yml", []byte("jobs: 2\n"), 0))
	require.NoError(t, fsutil.WriteAtomic(fs, "/out/config.yml", []byte("jobs: 4\n"), 0o600))

	data, err := afero.ReadFile(fs, "/out/config.yml")
	require.NoError(t, err)
	assert.Equal(t, "jobs: 4\n", string(data))

	stat, err := fs.Stat("/out/config.yml")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", stat.Mode().Perm().String())

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

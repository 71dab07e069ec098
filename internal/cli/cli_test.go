package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yaklabco/perlparse/pkg/reporter"
	"github.com/yaklabco/perlparse/pkg/runner"
)

const (
	cleanSource   = "print 1;\n"
	brokenSource  = "my $x = ;\n"
	heredocSource = "print <<EOT;\nhello\nEOT\n"
)

func testEnv(t *testing.T, files map[string]string) *environment {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/proj/.git", 0o755))
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/proj/"+name, []byte(content), 0o644))
	}
	return &environment{
		fs:        fs,
		workDir:   "/proj",
		userDir:   "/home/user/.config/perlparse",
		lookupEnv: func(string) (string, bool) { return "", false },
		stdin:     strings.NewReader(""),
	}
}

type output struct {
	stdout string
	stderr string
}

func execute(t *testing.T, env *environment, args ...string) (output, error) {
	t.Helper()

	cmd := newRootCommand(BuildInfo{Version: "1.2.3", Commit: "abc123", Date: "2026-01-01"}, env)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--color", "never"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return output{stdout: stdout.String(), stderr: stderr.String()}, err
}

func TestParse_Clean(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"a.pl": cleanSource, "lib/B.pm": "package B;\n1;\n"})
	out, err := execute(t, env, "parse")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "No parse errors (2 files parsed)")
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"a.pl": cleanSource, "bad.pl": brokenSource})
	out, err := execute(t, env, "parse")
	require.ErrorIs(t, err, ErrParseErrorsFound)
	assert.Equal(t, ExitParseErrors, ExitCode(err))
	assert.True(t, IsSilent(err))
	assert.Contains(t, out.stdout, "bad.pl:1:")
	assert.Contains(t, out.stdout, "my $x = ;")
}

func TestParse_JSON(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"a.pl": cleanSource, "bad.pl": brokenSource})
	out, err := execute(t, env, "parse", "--format", "json", "--no-summary", "--tree")
	require.ErrorIs(t, err, ErrParseErrorsFound)

	var doc reporter.Document
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &doc))
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "a.pl", doc.Files[0].Path)
	assert.Empty(t, doc.Files[0].Errors)
	assert.Equal(t, "Program", doc.Files[0].Nodes[0].Kind)
	assert.Equal(t, "bad.pl", doc.Files[1].Path)
	assert.NotEmpty(t, doc.Files[1].Errors)
	assert.Nil(t, doc.Summary)
}

func TestParse_InvalidFormat(t *testing.T) {
	t.Parallel()

	_, err := execute(t, testEnv(t, nil), "parse", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidUsage, ExitCode(err))
}

func TestParse_ProjectConfig(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{
		".perlparse.yml": "files:\n  exclude:\n    - \"t/**\"\n",
		"a.pl":           cleanSource,
		"t/broken.t":     brokenSource,
	})
	out, err := execute(t, env, "parse")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "(1 file parsed)")

	// flags replace the configured exclude list
	_, err = execute(t, env, "parse", "--exclude", "none/**")
	require.ErrorIs(t, err, ErrParseErrorsFound)
}

func TestParse_ConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config string
	}{
		{"schema violation", "jobs: -1\n"},
		{"unknown key", "colour: always\n"},
		{"invalid format", "format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := testEnv(t, map[string]string{".perlparse.yml": tt.config, "a.pl": cleanSource})
			_, err := execute(t, env, "parse")
			require.Error(t, err)
			assert.Equal(t, ExitConfigError, ExitCode(err))

			_, err = execute(t, env, "--no-config", "parse")
			require.NoError(t, err)
		})
	}
}

func TestParse_EnvOverridesConfig(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{".perlparse.yml": "format: yaml\n", "a.pl": cleanSource})
	env.lookupEnv = func(key string) (string, bool) {
		if key == "PERLPARSE_FORMAT" {
			return "json", true
		}
		return "", false
	}

	out, err := execute(t, env, "parse")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out.stdout)), out.stdout)
}

func TestColorFlagValidation(t *testing.T) {
	t.Parallel()

	_, err := execute(t, testEnv(t, nil), "--color", "purple", "version")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidUsage, ExitCode(err))
}

func TestTree(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"a.pl": cleanSource})

	out, err := execute(t, env, "tree", "a.pl")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.stdout, "(Program 0..9"), out.stdout)

	out, err = execute(t, env, "tree", "--kind", "Number", "a.pl")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.stdout, "(Number "), out.stdout)
	assert.NotContains(t, out.stdout, "Program")

	_, err = execute(t, env, "tree", "--kind", "Nonsense", "a.pl")
	assert.Equal(t, ExitInvalidUsage, ExitCode(err))

	_, err = execute(t, env, "tree", "missing.pl")
	assert.Equal(t, ExitIOError, ExitCode(err))
}

func TestTree_StdinJSON(t *testing.T) {
	t.Parallel()

	env := testEnv(t, nil)
	env.stdin = strings.NewReader(cleanSource)

	out, err := execute(t, env, "tree", "--format", "json", "-")
	require.NoError(t, err)

	var doc reporter.FileDoc
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &doc))
	assert.Equal(t, "<stdin>", doc.Path)
	require.NotEmpty(t, doc.Nodes)
	assert.Equal(t, "Program", doc.Nodes[0].Kind)
	assert.Equal(t, -1, doc.Nodes[0].Parent)
}

func TestTree_ReportsErrors(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"bad.pl": brokenSource})
	out, err := execute(t, env, "tree", "bad.pl")
	require.ErrorIs(t, err, ErrParseErrorsFound)
	assert.Contains(t, out.stdout, "(Program")
	assert.Contains(t, out.stderr, "bad.pl:1:")
}

func TestTokens(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"a.pl": cleanSource})

	out, err := execute(t, env, "tokens", "a.pl")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "KIND")
	assert.Contains(t, out.stdout, "Identifier")
	assert.Contains(t, out.stdout, "print")

	out, err = execute(t, env, "tokens", "-f", "json", "a.pl")
	require.NoError(t, err)
	var tokens []reporter.TokenDoc
	require.NoError(t, json.Unmarshal([]byte(out.stdout), &tokens))
	require.NotEmpty(t, tokens)
	assert.Equal(t, reporter.TokenDoc{Kind: "Identifier", Text: "print", Line: 1, Column: 1, Start: 0, End: 5}, tokens[0])
}

func TestHeredocs(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"doc.pl": heredocSource, "a.pl": cleanSource})

	out, err := execute(t, env, "heredocs", "doc.pl")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "EOT")
	assert.Contains(t, out.stdout, "interpolated")

	out, err = execute(t, env, "heredocs", "-f", "yaml", "doc.pl")
	require.NoError(t, err)
	var docs []reporter.HeredocDoc
	require.NoError(t, yaml.Unmarshal([]byte(out.stdout), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "EOT", docs[0].Terminator)
	assert.True(t, docs[0].Terminated)

	out, err = execute(t, env, "heredocs", "a.pl")
	require.NoError(t, err)
	assert.Equal(t, "No heredocs.\n", out.stdout)

	out, err = execute(t, env, "heredocs", "-f", "json", "--compact", "a.pl")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out.stdout)
}

func TestInitAndConfig(t *testing.T) {
	t.Parallel()

	env := testEnv(t, nil)

	_, err := execute(t, env, "init")
	require.NoError(t, err)
	exists, err := afero.Exists(env.fs, "/proj/.perlparse.yml")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = execute(t, env, "init")
	assert.Equal(t, ExitConfigError, ExitCode(err))

	_, err = execute(t, env, "init", "--force", "--full")
	require.NoError(t, err)

	out, err := execute(t, env, "config", "validate", ".perlparse.yml")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "/proj/.perlparse.yml: ok")

	out, err = execute(t, env, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "# Loaded from: /proj/.perlparse.yml")
	assert.Contains(t, out.stdout, "format: text")
}

func TestConfigShow_Defaults(t *testing.T) {
	t.Parallel()

	out, err := execute(t, testEnv(t, nil), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "# Sources: defaults")
	assert.Contains(t, out.stdout, "max_depth: 5000")
}

func TestConfigValidate_Invalid(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"bad.yml": "parser:\n  max_depth: 0\n"})
	_, err := execute(t, env, "config", "validate", "bad.yml")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestConfigEnv(t *testing.T) {
	t.Parallel()

	out, err := execute(t, testEnv(t, nil), "config", "env")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "PERLPARSE_JOBS")
	assert.Contains(t, out.stdout, "PERLPARSE_CACHE_TTL")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, testEnv(t, nil), "version")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "1.2.3")
	assert.Contains(t, out.stdout, "abc123")
}

func TestWatchOnce(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"a.pl": cleanSource, "bad.pl": brokenSource})
	out, err := execute(t, env, "watch", "--once")
	require.ErrorIs(t, err, ErrParseErrorsFound)
	assert.Contains(t, out.stdout, "a.pl v0: ok")
	assert.Regexp(t, `bad\.pl v0: \d+ errors?`, out.stdout)

	_, err = execute(t, testEnv(t, nil), "watch", "--once")
	assert.Equal(t, ExitInvalidUsage, ExitCode(err))
}

func TestHelp(t *testing.T) {
	t.Parallel()

	out, err := execute(t, testEnv(t, nil), "--help")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "Commands:")
	assert.Contains(t, out.stdout, "heredocs")
	assert.Contains(t, out.stdout, "--config string")

	out, err = execute(t, testEnv(t, nil), "parse", "--help")
	require.NoError(t, err)
	assert.Contains(t, out.stdout, "-j, --jobs int")
	assert.Contains(t, out.stdout, "Global Flags:")
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", &ExitError{Code: ExitConfigError, Err: errors.New("bad")}, ExitConfigError},
		{"wrapped exit error", fmt.Errorf("outer: %w", exitError(ExitIOError, "read")), ExitIOError},
		{"parse errors", ErrParseErrorsFound, ExitParseErrors},
		{"unreadable", fmt.Errorf("run: %w", ErrUnreadableFiles), ExitIOError},
		{"other", errors.New("boom"), ExitInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitCodeFromResult(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ExitSuccess, ExitCodeFromResult(nil))
	assert.Equal(t, ExitSuccess, ExitCodeFromResult(&runner.Result{}))
	assert.Equal(t, ExitParseErrors, ExitCodeFromResult(&runner.Result{Stats: runner.Stats{ErrorsTotal: 2}}))
	assert.Equal(t, ExitIOError, ExitCodeFromResult(&runner.Result{Stats: runner.Stats{ErrorsTotal: 2, FilesFailed: 1}}))
}

package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  log.Level
		valid bool
	}{
		{"debug", log.DebugLevel, true},
		{"info", log.InfoLevel, true},
		{"warn", log.WarnLevel, true},
		{"warning", log.WarnLevel, true},
		{"error", log.ErrorLevel, true},
		{"DEBUG", log.DebugLevel, true},
		{" Info ", log.InfoLevel, true},
		{"", log.InfoLevel, false},
		{"verbose", log.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logging.ParseLevel(tt.level))
			assert.Equal(t, tt.valid, logging.ValidLevel(tt.level))
			assert.Equal(t, tt.want, logging.New(tt.level).GetLevel())
		})
	}
}

func TestNewWithOptionsWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithOptions(logging.Options{Level: "warn", Writer: &buf, Prefix: "perlparse"})

	logger.Info("hidden")
	logger.Warn("shown", logging.FieldPath, "lib/Foo.pm")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "perlparse")
	assert.Contains(t, out, "lib/Foo.pm")
}

func TestDefaultAndSetDefault(t *testing.T) {
	// Mutates the process-wide logger.
	original := logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	require.NotNil(t, original)
	assert.Same(t, original, logging.Default())

	replacement := logging.New("error")
	logging.SetDefault(replacement)
	assert.Same(t, replacement, logging.Default())

	logging.SetLevel("debug")
	assert.Equal(t, log.DebugLevel, replacement.GetLevel())
}

func TestContext(t *testing.T) {
	t.Parallel()

	logger := logging.New("debug")
	ctx := logging.WithLogger(context.Background(), logger)
	assert.Same(t, logger, logging.FromContext(ctx))

	assert.NotNil(t, logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled.
	assert.NotNil(t, logging.FromContext(nil))
}

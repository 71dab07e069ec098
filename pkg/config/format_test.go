package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/config"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    config.OutputFormat
		wantErr bool
	}{
		{"text", config.FormatText, false},
		{"JSON", config.FormatJSON, false},
		{" yaml ", config.FormatYAML, false},
		{"cbor", config.FormatCBOR, false},
		{"sexp", config.FormatSexp, false},
		{"sarif", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := config.ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "text, json, yaml, cbor, sexp")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorModeIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, config.ColorAuto.IsValid())
	assert.True(t, config.ColorAlways.IsValid())
	assert.True(t, config.ColorNever.IsValid())
	assert.False(t, config.ColorMode("sometimes").IsValid())
	assert.False(t, config.ColorMode("").IsValid())
}

package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igleads/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "shouty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewCreatesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "igleads.log")

	log, err := New(&config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)
	log.Info("started")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWithFieldReturnsChildLogger(t *testing.T) {
	log, err := New(&config.LoggingConfig{Level: "disabled"})
	require.NoError(t, err)

	child := log.WithField("hashtag", "golf").WithError(errors.New("boom"))
	assert.NotNil(t, child)
	assert.NotSame(t, log, child)

	// The parent must not inherit the child's fields.
	parent := log.(*zerologLogger)
	assert.Empty(t, parent.fields)
}

func TestGetLoggerFallsBackToDefault(t *testing.T) {
	globalLogger = nil
	log := GetLogger()
	assert.NotNil(t, log)
}

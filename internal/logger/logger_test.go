package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG", "yes")
	t.Setenv("LOG_OUTPUT", "discard")
	t.Setenv("LOG_CONSOLE", "")

	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Level)
	assert.True(t, cfg.Debug)
	assert.Equal(t, OutputDiscard, cfg.Output)
	assert.False(t, cfg.Console)
}

func TestDefaultConfig_Defaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_OUTPUT", "")

	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.False(t, cfg.Debug)
	assert.Equal(t, OutputStderr, cfg.Output)
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want zerolog.Level
	}{
		{"default", Config{Output: OutputDiscard}, zerolog.InfoLevel},
		{"explicit", Config{Level: "error", Output: OutputDiscard}, zerolog.ErrorLevel},
		{"debug_wins", Config{Level: "error", Debug: true, Output: OutputDiscard}, zerolog.DebugLevel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, closeFn, err := New(tc.cfg)
			require.NoError(t, err)
			defer func() { _ = closeFn() }()
			assert.Equal(t, tc.want, l.GetLevel())
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, closeFn, err := New(Config{Level: "loud"})
	require.Error(t, err)
	require.NotNil(t, closeFn)
	assert.NoError(t, closeFn())
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetmon.log")

	l, closeFn, err := New(Config{Output: path})
	require.NoError(t, err)

	cl := WithComponent(l, "scheduler")
	cl.Info().Int("devices", 3).Msg("Cycle completed")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"component":"scheduler"`), line)
	assert.Contains(t, line, `"devices":3`)
	assert.Contains(t, line, `"message":"Cycle completed"`)
}

func TestNew_BadFilePath(t *testing.T) {
	_, _, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestNewTestLogger(t *testing.T) {
	l := NewTestLogger()
	assert.Equal(t, zerolog.Disabled, l.GetLevel())
}

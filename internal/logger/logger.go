// Package logger builds the zerolog loggers used across fleetmon.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Output destinations understood by Config.Output. Any other value is a
// file path, opened for append.
const (
	OutputStdout  = "stdout"
	OutputStderr  = "stderr"
	OutputDiscard = "discard"
)

type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
	// Console switches from JSON lines to zerolog's human-readable writer.
	Console bool `json:"console"`
}

// New returns a logger for cfg and a close func that releases the output
// file, if one was opened. The close func is never nil.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var (
		output  io.Writer
		closeFn = noop
	)

	switch cfg.Output {
	case "", OutputStderr:
		output = os.Stderr
	case OutputStdout:
		output = os.Stdout
	case OutputDiscard:
		output = io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("opening log file: %w", err)
		}
		output = f
		closeFn = f.Close
	}

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	if cfg.Console {
		cw := zerolog.ConsoleWriter{Out: output, NoColor: output != os.Stdout && output != os.Stderr}
		if cfg.TimeFormat != "" {
			cw.TimeFormat = cfg.TimeFormat
		}
		output = cw
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), closeFn, nil
}

// WithComponent tags l with a component field.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// NewTestLogger returns a logger that drops everything.
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

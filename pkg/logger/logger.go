package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/config"
)

const serviceName = "opsdesk-api"

// New creates a new zerolog logger with structured output
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter builds the logger on top of w
func NewWithWriter(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	// Use pretty console output in development
	if cfg.Format == "pretty" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			Level(level).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Logger()
	}

	// JSON output for production
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

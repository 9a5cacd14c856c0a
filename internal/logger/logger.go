// Package logger builds the *slog.Logger used across the application.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a logger configured for the given environment.
//
// Development (dev): colourised human-readable output at DEBUG level.
// Staging (staging): JSON output at DEBUG level.
// Production (prod): JSON output at INFO level.
//
// A non-empty level ("debug", "info", "warn", "error") overrides the
// environment's default.
func New(env, level string) (*slog.Logger, error) {
	return NewWithWriter(os.Stderr, env, level)
}

// NewWithWriter is New writing to w.
func NewWithWriter(w io.Writer, env, level string) (*slog.Logger, error) {
	logLevel := slog.LevelDebug
	if env == "prod" {
		logLevel = slog.LevelInfo
	}

	if level != "" {
		if err := logLevel.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	switch env {
	case "prod", "staging":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: logLevel,
		})), nil
	default:
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
		})), nil
	}
}

// Package logger builds the structured JSON logger shared by the storefront API and the settlement worker.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gamevault-settlement/internal/config"
)

// NewLogger creates a JSON slog.Logger writing to stdout.
func NewLogger(cfg *config.Config) *slog.Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter creates a JSON slog.Logger writing to w. Every record carries the
// application name and environment so API and worker logs can be told apart downstream.
func NewLoggerWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts)).With(
		"app", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	logger.Info("logger initialized", "level", level)

	return logger
}

// ParseLevel maps a configured level name to a slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

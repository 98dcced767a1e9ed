package config

import (
	"log/slog"
	"os"
)

// NewLogger builds a slog.Logger from a level string, the same level
// switch the teacher's InicializarLogger uses, but returned as an explicit
// value rather than assigned to package-level globals — callers thread it
// through their own constructors instead of reaching for a shared logger.
func NewLogger(levelName string, component string) *slog.Logger {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("component", component)
}

package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger from c.
func NewLogger(c Log, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

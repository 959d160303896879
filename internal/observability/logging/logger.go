package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger writes structured JSON records to stdout tagged with service.
func NewJSONLogger(service, level string) *slog.Logger {
	return New(os.Stdout, service, level, "json")
}

// New builds a logger for w. format is "json" or "text"; the CLI uses text
// on stderr so command output stays clean.
func New(w io.Writer, service, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

package logging

import (
	"io"
	"log/slog"
	"os"
)

const serviceName = "appgateway"

// New creates a process logger with JSON output for backend services.
func New(level slog.Level) *slog.Logger {
	return newJSON(os.Stdout, level)
}

// Discard returns a logger that drops every record. Components use it when the
// caller passes no logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).With("service", serviceName)
}

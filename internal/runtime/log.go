package runtime

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process-wide JSON logger. Every record is emitted as
// a single line so log aggregation treats it as one entry.
func NewLogger(service string) *slog.Logger {
	return NewLoggerTo(os.Stdout, service)
}

// NewLoggerTo writes JSON records to the given sink. Tests pass a buffer to
// capture and re-parse what was logged.
func NewLoggerTo(w io.Writer, service string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h).With("service", service)
}

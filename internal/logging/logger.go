package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/litedb/internal/config"
)

// ServiceName is attached to every entry as the service field.
const ServiceName = "litedb"

// Writer returns stdout when cfg.Output is "stdout" and stderr otherwise.
func Writer(cfg config.LoggingConfig, stdout, stderr io.Writer) io.Writer {
	if strings.EqualFold(cfg.Output, "stdout") {
		return stdout
	}
	return stderr
}

// New creates a logger writing to w. Pick w with Writer to honor
// cfg.Output.
func New(cfg config.LoggingConfig, version string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})
	return slog.New(handler)
}

// parseLevel converts a level name to slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Discard returns a logger that drops everything. Used in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

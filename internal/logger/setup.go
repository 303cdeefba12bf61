package logger

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps debug|info|warn|error to a slog level. Anything else is info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

// New builds the process logger: the coloured console handler by default, or
// slog's JSON handler when format is "json".
func New(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewPrettyHandler(w, opts))
}

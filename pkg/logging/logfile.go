package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Format selects the encoding of structured log records.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text" // logfmt-style key=value
)

// FileConfig describes the structured log kept alongside terminal output.
type FileConfig struct {
	Path      string
	Level     slog.Level
	Format    Format
	Component string // added to every record as "component" when set
}

// OpenFile returns a handler writing to a size-rotated log at cfg.Path and
// the closer for the underlying file. Rotated files are compressed; the
// last three are kept for up to 28 days.
func OpenFile(cfg FileConfig) (slog.Handler, io.Closer) {
	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	h := NewHandler(w, cfg.Level, cfg.Format)
	if cfg.Component != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", cfg.Component)})
	}
	return h, w
}

// NewHandler returns a JSON or text handler on w. Times are written under
// "ts" in RFC 3339 with nanoseconds.
func NewHandler(w io.Writer, level slog.Leveler, format Format) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: timestampAttr,
	}
	if format == FormatText {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func timestampAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		return slog.String("ts", t.Format(time.RFC3339Nano))
	}
	return a
}

// ParseLevel parses a level name as accepted by slog ("debug", "INFO",
// "warn+2"), plus "warning".
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// ParseFormat parses a log format name; "logfmt" is an alias for text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "text", "logfmt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("invalid log format %q: expected json or text", s)
	}
}

package logging

import (
	"context"
	"log/slog"
	"regexp"
)

const redacted = "[REDACTED]"

// Keys whose values are masked in map attributes such as build args.
var sensitiveKeyPattern = regexp.MustCompile(`(?i)(password|passwd|secret|token|credential|auth[_-]?token|api[_-]?key|private[_-]?key)`)

// Matches KEY=value pairs inside free text, such as "--build-arg NPM_TOKEN=abc".
// Colons are not assignments here: image references use them for tags.
var sensitiveAssignPattern = regexp.MustCompile(`(?i)(\b\w*(?:password|passwd|secret|token|credential|api[_-]?key)\w*=)\S+`)

// RedactingHandler removes secret values from records before forwarding them
// to an inner handler. Map attributes (build args, labels) have values under
// sensitive keys replaced; string values have KEY=value secrets masked.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps an inner handler with secret redaction.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, RedactString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(clean)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) && a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, redacted)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, RedactString(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		args := make([]any, len(group))
		for i, ga := range group {
			args[i] = redactAttr(ga)
		}
		return slog.Group(a.Key, args...)
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]string:
			return slog.Any(a.Key, RedactMap(v))
		case []string:
			out := make([]string, len(v))
			for i, s := range v {
				out[i] = RedactString(s)
			}
			return slog.Any(a.Key, out)
		case error:
			return slog.String(a.Key, RedactString(v.Error()))
		}
	}
	return a
}

// RedactString masks the values of KEY=value pairs whose key looks secret.
func RedactString(s string) string {
	return sensitiveAssignPattern.ReplaceAllString(s, "${1}"+redacted)
}

// RedactMap returns a copy of m with values under sensitive keys replaced.
func RedactMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = redacted
		} else {
			out[k] = v
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	return sensitiveKeyPattern.MatchString(key)
}

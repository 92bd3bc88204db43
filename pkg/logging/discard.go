// Package logging provides the slog plumbing shared by elver commands.
package logging

import (
	"context"
	"log/slog"
)

// DiscardHandler is a slog.Handler that drops every record.
type DiscardHandler struct{}

func (DiscardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (DiscardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d DiscardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d DiscardHandler) WithGroup(string) slog.Handler           { return d }

// NewDiscardLogger returns a logger that discards all output. Library code
// falls back to it when the caller passes a nil logger.
func NewDiscardLogger() *slog.Logger {
	return slog.New(DiscardHandler{})
}

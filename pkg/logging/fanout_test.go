package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFanoutHandler_WritesToAll(t *testing.T) {
	var a, b bytes.Buffer
	h := NewFanoutHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	)
	slog.New(h).Info("image built", "id", "sha256:abc")

	if !strings.Contains(a.String(), "id=sha256:abc") {
		t.Errorf("text handler missing record: %q", a.String())
	}
	if !strings.Contains(b.String(), `"id":"sha256:abc"`) {
		t.Errorf("json handler missing record: %q", b.String())
	}
}

func TestFanoutHandler_RespectsLevels(t *testing.T) {
	var info, debug bytes.Buffer
	h := NewFanoutHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled when any handler accepts it")
	}

	slog.New(h).Debug("step output")

	if info.Len() != 0 {
		t.Errorf("info handler should not receive debug record, got %q", info.String())
	}
	if !strings.Contains(debug.String(), "step output") {
		t.Errorf("debug handler missing record: %q", debug.String())
	}
}

func TestFanoutHandler_SkipsNil(t *testing.T) {
	var buf bytes.Buffer
	h := NewFanoutHandler(nil, slog.NewTextHandler(&buf, nil))
	slog.New(h).With("repository", "acme/app").Info("ok")

	if !strings.Contains(buf.String(), "repository=acme/app") {
		t.Errorf("expected attrs carried through, got %q", buf.String())
	}
}

func TestFanoutHandler_Empty(t *testing.T) {
	h := NewFanoutHandler()
	if h.Enabled(context.Background(), slog.LevelError) {
		t.Error("empty fanout should not be enabled")
	}
}

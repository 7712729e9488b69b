package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink unavailable")
}

func TestMultiHandler_DispatchesToAll(t *testing.T) {
	var first, second bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&first, nil),
		slog.NewJSONHandler(&second, nil),
	)

	slog.New(h).With("session.id", "s1").WithGroup("move").Info("applied", "index", 4)

	for _, out := range []string{first.String(), second.String()} {
		assert.Contains(t, out, `"msg":"applied"`)
		assert.Contains(t, out, `"session.id":"s1"`)
		assert.Contains(t, out, `"move":{"index":4}`)
	}
}

func TestMultiHandler_EnabledIfAnyEnabled(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	quiet := NewMultiHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))
	assert.False(t, quiet.Enabled(context.Background(), slog.LevelInfo))
}

func TestMultiHandler_ReturnsHandlerError(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(failingHandler{slog.NewTextHandler(&buf, nil)})

	err := h.Handle(context.Background(), slog.Record{})
	assert.Error(t, err)
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn)

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

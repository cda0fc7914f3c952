package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFieldsMerges(t *testing.T) {
	ctx := WithFields(context.Background(), LogFields{"a": 1, "b": 2})
	ctx = WithFields(ctx, LogFields{"b": 3, "c": 4})

	assert.Equal(t, LogFields{"a": 1, "b": 3, "c": 4}, GetLogFields(ctx))
	assert.Empty(t, GetLogFields(context.Background()))
}

func TestWithPrincipal(t *testing.T) {
	ctx := WithPrincipal(context.Background(), "u1", "COMPANY")
	assert.Equal(t, LogFields{"uid": "u1", "role": "COMPANY"}, GetLogFields(ctx))

	ctx = WithPrincipal(context.Background(), "u2", "")
	assert.Equal(t, LogFields{"uid": "u2"}, GetLogFields(ctx))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestInfoIncludesContextFields(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	Setup(&buf, "debug", true)

	ctx := WithTraceID(context.Background(), "trace-123")
	ctx = WithFields(ctx, LogFields{"operation": "create_bounty"})
	Info(ctx, "Bounty created", "bounty_id", "b1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Bounty created", entry["msg"])
	assert.Equal(t, "trace-123", entry["trace_id"])
	assert.Equal(t, "create_bounty", entry["operation"])
	assert.Equal(t, "b1", entry["bounty_id"])
	assert.Equal(t, "trace-123", TraceID(ctx))
}

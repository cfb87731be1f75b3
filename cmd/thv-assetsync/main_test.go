package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTestLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(&traceHandler{Handler: base, level: level}), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var record map[string]any
		require.NoError(t, json.Unmarshal(line, &record))
		records = append(records, record)
	}
	return records
}

func TestTraceHandler_FiltersByLevel(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(slog.LevelWarn)
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	records := decodeLines(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, "warn", records[0]["msg"])
	assert.Equal(t, "error", records[1]["msg"])
}

func TestTraceHandler_InjectsSpanContext(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(t.Context(), "operation")
	defer span.End()

	logger, buf := newTestLogger(slog.LevelInfo)
	logger.InfoContext(ctx, "inside span")
	logger.With("resource", "en/cards").InfoContext(t.Context(), "outside span")

	records := decodeLines(t, buf)
	require.Len(t, records, 2)
	assert.Equal(t, span.SpanContext().TraceID().String(), records[0]["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), records[0]["span_id"])
	assert.NotContains(t, records[1], "trace_id")
	assert.Equal(t, "en/cards", records[1]["resource"])
}

func TestTraceHandler_LevelVarChanges(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	level := new(slog.LevelVar)
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(&traceHandler{Handler: base, level: level}).WithGroup("engine")

	logger.Debug("hidden")
	level.Set(slog.LevelDebug)
	logger.Debug("shown")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "shown", records[0]["msg"])
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		want     slog.Level
	}{
		{name: "prefixed debug", envVar: "THV_ASSETSYNC_LOG_LEVEL", envValue: "debug", want: slog.LevelDebug},
		{name: "prefixed warning", envVar: "THV_ASSETSYNC_LOG_LEVEL", envValue: "WARNING", want: slog.LevelWarn},
		{name: "unprefixed error", envVar: "LOG_LEVEL", envValue: "error", want: slog.LevelError},
		{name: "invalid value", envVar: "THV_ASSETSYNC_LOG_LEVEL", envValue: "verbose", want: slog.LevelInfo},
		{name: "unset", envVar: "THV_ASSETSYNC_LOG_LEVEL", envValue: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("THV_ASSETSYNC_LOG_LEVEL", "")
			t.Setenv("LOG_LEVEL", "")
			t.Setenv(tt.envVar, tt.envValue)

			assert.Equal(t, tt.want, getLogLevel())
		})
	}
}

func TestNewZapLogger(t *testing.T) {
	t.Parallel()

	logger, err := newZapLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapLogLevel))
}

package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/trace"
)

func TestConsoleHandlerAddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	h, err := consoleHandler(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger := slog.New(h).With("component", "test")
	logger.InfoContext(ctx, "hello")
	logger.DebugContext(ctx, "filtered")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "test", rec["component"])
	assert.Equal(t, sc.TraceID().String(), rec["trace_id"])
	assert.Equal(t, sc.SpanID().String(), rec["span_id"])
}

func TestConsoleHandlerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	h, err := consoleHandler(&buf, slog.LevelDebug, "text")
	require.NoError(t, err)

	slog.New(h).Debug("plain")
	assert.Contains(t, buf.String(), "msg=plain")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestConsoleHandlerRejectsUnknownFormat(t *testing.T) {
	_, err := consoleHandler(&bytes.Buffer{}, slog.LevelInfo, "xml")
	assert.Error(t, err)
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  minsev.Severity
	}{
		{slog.LevelDebug, minsev.SeverityDebug},
		{slog.LevelInfo, minsev.SeverityInfo},
		{slog.LevelWarn, minsev.SeverityWarn},
		{slog.LevelError, minsev.SeverityError},
		{slog.LevelError + 4, minsev.SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, severity(tt.level))
		})
	}
}

func TestInstrumentStdoutExporter(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	prevOutput := output
	output = &buf
	t.Cleanup(func() { output = prevOutput })

	shutdown, err := Instrument(context.Background(), slog.LevelInfo, "text", ExporterStdout)
	require.NoError(t, err)

	slog.Info("exported", "key", "value")
	slog.Debug("dropped by severity filter")
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "exported")
	assert.NotContains(t, buf.String(), "dropped by severity filter")
}

func TestInstrumentRejectsUnknownExporter(t *testing.T) {
	_, err := Instrument(context.Background(), slog.LevelInfo, "text", "carrier-pigeon")
	assert.Error(t, err)
}

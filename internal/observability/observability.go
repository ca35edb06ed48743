// Package observability installs the process-wide slog logger and the
// OpenTelemetry log pipeline behind it.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const instrumentationName = "github.com/florianilch/shelf"

// Exporter selects where log records go.
type Exporter string

const (
	// ExporterConsole writes slog text or JSON to stderr.
	ExporterConsole Exporter = "console"
	// ExporterStdout writes OTel log records as JSON to stderr.
	ExporterStdout Exporter = "stdout"
	// ExporterOTLPHTTP ships records over OTLP/HTTP, configured by OTEL_EXPORTER_OTLP_* variables.
	ExporterOTLPHTTP Exporter = "otlp-http"
	// ExporterOTLPGRPC ships records over OTLP/gRPC, configured by OTEL_EXPORTER_OTLP_* variables.
	ExporterOTLPGRPC Exporter = "otlp-grpc"
)

// ShutdownFunc flushes and stops the log pipeline.
type ShutdownFunc func(context.Context) error

var output io.Writer = os.Stderr

// Instrument sets the default slog logger and the W3C trace context propagator.
// The returned ShutdownFunc must run before the process exits.
func Instrument(ctx context.Context, level slog.Level, format string, exporter Exporter) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if exporter == "" || exporter == ExporterConsole {
		handler, err := consoleHandler(output, level, format)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(handler))
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, exporter)
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minsev.NewLogProcessor(sdklog.NewBatchProcessor(exp), severity(level))),
	)
	global.SetLoggerProvider(provider)
	slog.SetDefault(slog.New(otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))))

	return func(ctx context.Context) error {
		return errors.Join(provider.ForceFlush(ctx), provider.Shutdown(ctx))
	}, nil
}

func consoleHandler(w io.Writer, level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "text":
		return traceHandler{slog.NewTextHandler(w, opts)}, nil
	case "json":
		return traceHandler{slog.NewJSONHandler(w, opts)}, nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

func newExporter(ctx context.Context, exporter Exporter) (sdklog.Exporter, error) {
	switch exporter {
	case ExporterStdout:
		return stdoutlog.New(stdoutlog.WithWriter(output))
	case ExporterOTLPHTTP:
		return otlploghttp.New(ctx)
	case ExporterOTLPGRPC:
		return otlploggrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported log exporter %q", exporter)
	}
}

func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}

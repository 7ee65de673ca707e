// Package telemetry wires up OpenTelemetry tracing for the mcpguard CLI.
// Spans are only useful for local debugging, so the only exporter wired in
// is the stdout exporter; nothing in this module talks to a collector. The
// one span created is the one `mcpguard scan --tracing` opens around a
// whole scan run; the proxy creates no spans.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Setup installs a global TracerProvider that writes spans as JSON to w.
// The returned shutdown func flushes and detaches the provider; callers
// should defer it. If enabled is false, Setup installs nothing and the
// returned shutdown is a no-op.
func Setup(enabled bool, w io.Writer) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !enabled {
		return noop, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return noop, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the named tracer from the currently installed global
// TracerProvider (a no-op tracer if Setup was never called or was called
// with enabled=false).
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

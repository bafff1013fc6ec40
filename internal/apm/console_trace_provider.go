package apm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleTraceProvider writes pretty-printed spans to stdout. It backs
// local runs where no collector endpoint is configured.
type ConsoleTraceProvider struct {
	tp *sdktrace.TracerProvider
}

// NewEmptyTraceProvider returns a provider that records nothing and
// needs no shutdown.
func NewEmptyTraceProvider() TraceProvider {
	return ConsoleTraceProvider{}
}

// NewConsoleTraceProvider installs a stdout span exporter as the global
// tracer provider.
func NewConsoleTraceProvider() TraceProvider {
	exporter, _ := stdouttrace.New(stdouttrace.WithPrettyPrint())
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return ConsoleTraceProvider{tp}
}

// Stop flushes any buffered spans before returning.
func (ctp ConsoleTraceProvider) Stop() error {
	if ctp.tp == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	return ctp.tp.Shutdown(ctx)
}

package common

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingOpts configures SetupTracing.
type TracingOpts struct {
	// Enabled turns on span export. When false a no-op tracer is returned.
	Enabled bool

	// Output receives pretty-printed spans. Defaults to stdout when nil.
	Output io.Writer
}

// SetupTracing installs a global tracer provider and returns the tracer used by
// the factory together with a shutdown function that flushes pending spans.
func SetupTracing(opts *TracingOpts) (trace.Tracer, func(context.Context) error, error) {
	if !opts.Enabled {
		return noop.NewTracerProvider().Tracer(PackageName), func(context.Context) error { return nil }, nil
	}

	exporterOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if opts.Output != nil {
		exporterOpts = append(exporterOpts, stdouttrace.WithWriter(opts.Output))
	}

	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)

	return provider.Tracer(PackageName), provider.Shutdown, nil
}

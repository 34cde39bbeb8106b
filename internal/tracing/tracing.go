// Package tracing wires an optional OpenTelemetry tracer provider
// around feed message processing, grounded on fd1az-arbitrage-bot's
// use of go.opentelemetry.io/otel (otel.Tracer / trace.Span) to
// instrument pricing-provider calls. This is ambient observability:
// spec.md's Non-goals exclude an analytics pipeline, not request
// tracing, so it stays on the critical path as an optional no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const tracerName = "marketdata-ingestor"

// Provider owns the process's tracer provider and must be shut down on
// exit to flush any buffered spans.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewNoop returns a Provider backed by the global no-op tracer; used
// when tracing is disabled in configuration.
func NewNoop() *Provider {
	return &Provider{}
}

// NewSDK builds a real TracerProvider sampling every span (appropriate
// at this service's traffic volume; downsampling is an operator
// decision, not a code one). serviceName labels every span's resource.
func NewSDK(serviceName string) (*Provider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}, nil
}

// Tracer returns the named tracer to start spans with.
func (p *Provider) Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Shutdown flushes and releases the tracer provider. It is a no-op
// when the Provider was constructed via NewNoop.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

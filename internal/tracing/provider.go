// Package tracing provides OpenTelemetry initialization, dispatch spans and
// W3C trace context propagation.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "github.com/torosent/confreq"

type exporterFunc func(ctx context.Context, endpoint string, insecure bool) (sdktrace.SpanExporter, error)

var exporters = map[string]exporterFunc{
	ProtocolGRPC: grpcExporter,
	ProtocolHTTP: httpExporter,
}

// Provider owns the tracer handed to request templates. The zero value and a
// nil *Provider trace nothing.
type Provider struct {
	tp        *sdktrace.TracerProvider
	tracer    trace.Tracer
	propagate bool
}

// Option adjusts Init.
type Option func(*initOptions)

type initOptions struct {
	exporter sdktrace.SpanExporter
}

// WithExporter replaces the OTLP exporter. Spans are exported as they end,
// which makes the provider usable in tests.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *initOptions) { o.exporter = exp }
}

// Init builds the provider for cfg and installs it as the global tracer
// provider. Without an endpoint (and without WithExporter) it returns a
// provider that records nothing.
func Init(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.exporter == nil && !cfg.Enabled() {
		return &Provider{}, nil
	}
	if problems := cfg.Problems(); len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.serviceName())))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	var spanProcessing sdktrace.TracerProviderOption
	if o.exporter != nil {
		spanProcessing = sdktrace.WithSyncer(o.exporter)
	} else {
		exp, err := exporters[cfg.protocol()](ctx, cfg.endpoint(), cfg.Insecure)
		if err != nil {
			return nil, fmt.Errorf("tracing exporter: %w", err)
		}
		spanProcessing = sdktrace.WithBatcher(exp)
	}

	tp := sdktrace.NewTracerProvider(
		spanProcessing,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	propagate := cfg.ShouldPropagate()
	if cfg.Propagate == nil && o.exporter != nil {
		propagate = true
	}
	return &Provider{tp: tp, tracer: tp.Tracer(instrumentationName), propagate: propagate}, nil
}

// sampler maps a ratio onto the sampler that implements it exactly at 0 and 1.
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio <= 0:
		return sdktrace.NeverSample()
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	}
	return sdktrace.TraceIDRatioBased(ratio)
}

func grpcExporter(ctx context.Context, endpoint string, insecureConn bool) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if insecureConn {
		opts = append(opts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func httpExporter(ctx context.Context, endpoint string, insecureConn bool) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecureConn {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// Tracer is the tracer for request templates; a no-op tracer when disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracer
}

// ShouldPropagate reports whether the HTTP transport injects trace headers.
func (p *Provider) ShouldPropagate() bool {
	return p != nil && p.propagate
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

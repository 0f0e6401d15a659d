package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/JustinTDCT/Marquee"

// Tracing owns the tracer provider. A nil *Tracing is valid and a no-op.
type Tracing struct {
	provider *sdktrace.TracerProvider
}

// InitTracing installs an OTLP/HTTP exporter when endpoint is set.
// It returns nil when tracing is disabled.
func InitTracing(ctx context.Context, endpoint, release string) (*Tracing, error) {
	if endpoint == "" {
		return nil, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("marquee"),
		semconv.ServiceVersionKey.String(release),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return &Tracing{provider: provider}, nil
}

func (t *Tracing) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Tracer returns the global tracer. Without InitTracing this is a no-op tracer.
func Tracer() oteltrace.Tracer {
	return otel.Tracer(tracerName)
}

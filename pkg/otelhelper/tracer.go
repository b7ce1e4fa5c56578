// Package otelhelper provides tracing helpers for DriveLock API calls and node executions.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	NodeIDKey       = "drivelock.node.id"
	ResourceKey     = "drivelock.resource"
	OperationKey    = "drivelock.operation"
	ItemIndexKey    = "drivelock.item.index"
	EntityKey       = "drivelock.entity"
	HTTPMethodKey   = "drivelock.http.method"
	EndpointKey     = "drivelock.http.endpoint"
	StatusCodeKey   = "drivelock.http.status_code"
	AttemptKey      = "drivelock.http.attempt"
	PageSkipKey     = "drivelock.page.skip"
	PageTakeKey     = "drivelock.page.take"
	IdempotencyKey  = "drivelock.idempotency_key"
	CustomSchemaKey = "drivelock.custom_schema"
	ErrorTypeKey    = "drivelock.error.type"
)

// Setup installs an OTLP/HTTP tracer provider as the global provider and
// returns its shutdown function.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return provider.Shutdown, nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}

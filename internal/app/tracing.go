package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// initTracing installs an OTLP exporter as the global tracer provider and
// returns its shutdown func. With tracing disabled the global noop provider
// stays in place.
func (a *App) initTracing(ctx context.Context) (func(context.Context) error, error) {
	if !a.config.TracingEnabled {
		return func(context.Context) error { return nil }, nil
	}

	endpoint := strings.TrimSpace(a.config.TracingEndpoint)
	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("init tracing exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(a.config.tracingAttributes()...))
	if err != nil {
		return nil, fmt.Errorf("init tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	a.logger.Info(
		"tracing enabled",
		"exporter", "otlp/grpc",
		"endpoint", endpoint,
		"service_name", a.config.TracingServiceName,
	)

	return tp.Shutdown, nil
}

// tracingAttributes describes the widget instance on every exported span:
// which backend it talks to and how its gateway is configured.
func (c Config) tracingAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", c.TracingServiceName),
		attribute.String("widget.csrf.source", c.csrfSource()),
		attribute.Int64("widget.request_timeout_ms", c.RequestTimeout.Milliseconds()),
		attribute.Int64("widget.drain_timeout_ms", c.DrainTimeout.Milliseconds()),
	}
	if u, err := url.Parse(c.BaseURL); err == nil {
		attrs = append(attrs,
			attribute.String("widget.backend.scheme", u.Scheme),
			attribute.String("widget.backend.host", u.Host),
		)
	}
	return attrs
}

func (c Config) csrfSource() string {
	if c.CSRFToken != "" {
		return "static"
	}
	return "page"
}

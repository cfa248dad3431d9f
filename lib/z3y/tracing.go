package z3y

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("z3y")

// SetupTracing initialises OpenTelemetry tracing for a host process
// embedding z3y. Tracing is opt-in: when Z3Y_OTEL_ENDPOINT is unset it
// returns a no-op shutdown and registers no global provider, so loading a
// plugin never pays for span construction unless a host asked for it.
// The returned shutdown flushes pending spans and should be deferred.
func SetupTracing(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if strings.EqualFold(os.Getenv("Z3Y_OTEL_ENABLED"), "false") {
		return noop, nil
	}
	endpoint := os.Getenv("Z3Y_OTEL_ENDPOINT")
	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer = tp.Tracer("z3y")

	return tp.Shutdown, nil
}

// traceLoad wraps a Loader.Load call in a span tagged with the library
// path, so a slow or failing plugin init is visible in a trace alongside
// whatever else the host is doing during startup.
func traceLoad(ctx context.Context, path string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "z3y.loader.load", trace.WithAttributes(
		attribute.String("z3y.library_path", path),
	))
	defer span.End()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

package tracer

import (
	"context"

	"canvas-rag-be/internal/config"
	"canvas-rag-be/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ServiceName identifies this backend in exported spans.
const ServiceName = "canvas-rag-be"

func noop(context.Context) error { return nil }

// InitTracer installs a global tracer provider exporting over OTLP HTTP
// (Jaeger accepts it on 4318). The returned function flushes and stops
// it. With tracing disabled, or when the exporter cannot be built, the
// global provider is left alone and shutdown is a no-op.
func InitTracer(cfg *config.Config, log logger.ILogger) func(context.Context) error {
	tc := cfg.Tracing
	if !tc.Enabled {
		log.Info("TRACER", "Tracing disabled (set OTEL_ENABLED=true to enable)", nil)
		return noop
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(tc.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn("TRACER", "Failed to create OTLP exporter, tracing disabled", map[string]interface{}{
			"endpoint": tc.Endpoint,
			"error":    err.Error(),
		})
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.SampleRatio))),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
			semconv.DeploymentEnvironmentKey.String(cfg.App.Environment),
		)),
	)
	otel.SetTracerProvider(tp)

	log.Info("TRACER", "Tracer initialized", map[string]interface{}{
		"endpoint":     tc.Endpoint,
		"sample_ratio": tc.SampleRatio,
	})
	return tp.Shutdown
}

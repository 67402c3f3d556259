// Package observability wires the process-wide telemetry: slog setup, the
// Prometheus metric set and OpenTelemetry tracing, plus the context
// carriage that keeps request ids attached across queue hops.
package observability

import (
	"context"
	"log/slog"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// prodSampleRatio keeps production trace volume at a tenth of traffic; dev
// and test trace everything.
const prodSampleRatio = 0.1

// SetupTracing installs the OTLP gRPC trace pipeline and returns its
// shutdown func. With no endpoint configured tracing stays off and the
// returned func is nil.
func SetupTracing(cfg config.Config) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		slog.Info("OTLP endpoint not set; tracing disabled")
		return nil, nil
	}

	ctx := context.Background()
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.OTELServiceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
	))
	if err != nil {
		return nil, err
	}

	ratio := 1.0
	if cfg.IsProd() {
		ratio = prodSampleRatio
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	slog.Info("tracing configured",
		slog.String("endpoint", cfg.OTLPEndpoint),
		slog.Float64("sample_ratio", ratio))
	return tp.Shutdown, nil
}

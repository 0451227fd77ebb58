// Package observability provides tracing and metrics for dispatches.
package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kart-io/easysms"

// Config controls telemetry export
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPHeaders    map[string]string
	SampleRate     float64
}

// DefaultConfig returns a disabled configuration
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "easysms",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "http://localhost:4318",
		SampleRate:     1.0,
	}
}

// TelemetryProvider provides observability features
type TelemetryProvider struct {
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	// Metrics
	gatewaySent   metric.Int64Counter
	gatewayFailed metric.Int64Counter
	sendDuration  metric.Float64Histogram
}

// NewTelemetryProvider creates a provider. A disabled config yields the
// global (no-op unless installed elsewhere) tracer and meter.
func NewTelemetryProvider(cfg *Config) (*TelemetryProvider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if !cfg.Enabled {
		return NewTelemetryProviderWith(otel.GetTracerProvider(), otel.GetMeterProvider())
	}

	traceProvider, err := newTraceProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Set global trace provider and propagator
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tp, err := NewTelemetryProviderWith(traceProvider, otel.GetMeterProvider())
	if err != nil {
		return nil, err
	}
	tp.traceProvider = traceProvider
	return tp, nil
}

// NewTelemetryProviderWith builds a provider on explicit tracer and meter
// providers without touching the globals.
func NewTelemetryProviderWith(tracerProvider trace.TracerProvider, meterProvider metric.MeterProvider) (*TelemetryProvider, error) {
	tp := &TelemetryProvider{
		tracer: tracerProvider.Tracer(instrumentationName,
			trace.WithSchemaURL(semconv.SchemaURL),
		),
		meter: meterProvider.Meter(instrumentationName,
			metric.WithSchemaURL(semconv.SchemaURL),
		),
	}
	if err := tp.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return tp, nil
}

// Noop returns a provider whose spans and metrics are discarded
func Noop() *TelemetryProvider {
	tp, _ := NewTelemetryProviderWith(otel.GetTracerProvider(), otel.GetMeterProvider())
	return tp
}

func newTraceProvider(cfg *Config) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithHeaders(cfg.OTLPHeaders)}
	if strings.Contains(cfg.OTLPEndpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	), nil
}

func (tp *TelemetryProvider) initMetrics() error {
	var err error

	tp.gatewaySent, err = tp.meter.Int64Counter(
		"easysms_gateway_sent_total",
		metric.WithDescription("Total number of successful gateway sends"),
	)
	if err != nil {
		return fmt.Errorf("create gateway_sent counter: %w", err)
	}

	tp.gatewayFailed, err = tp.meter.Int64Counter(
		"easysms_gateway_failed_total",
		metric.WithDescription("Total number of failed gateway sends"),
	)
	if err != nil {
		return fmt.Errorf("create gateway_failed counter: %w", err)
	}

	tp.sendDuration, err = tp.meter.Float64Histogram(
		"easysms_gateway_send_duration_seconds",
		metric.WithDescription("Duration of gateway send calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create send_duration histogram: %w", err)
	}

	return nil
}

// TraceDispatch starts the span covering one messenger send
func (tp *TelemetryProvider) TraceDispatch(ctx context.Context, dispatchID string, candidates int) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, "easysms.dispatch",
		trace.WithAttributes(
			attribute.String("easysms.dispatch.id", dispatchID),
			attribute.Int("easysms.gateways.count", candidates),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// TraceGatewaySend starts the span covering one gateway call
func (tp *TelemetryProvider) TraceGatewaySend(ctx context.Context, dispatchID, gateway string) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, "easysms.gateway.send",
		trace.WithAttributes(
			attribute.String("easysms.dispatch.id", dispatchID),
			attribute.String("easysms.gateway", gateway),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// RecordGatewaySent records a successful gateway call
func (tp *TelemetryProvider) RecordGatewaySent(ctx context.Context, gateway string, duration time.Duration) {
	if tp.gatewaySent != nil {
		tp.gatewaySent.Add(ctx, 1, metric.WithAttributes(
			attribute.String("gateway", gateway),
		))
	}

	if tp.sendDuration != nil {
		tp.sendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("gateway", gateway),
			attribute.String("status", "success"),
		))
	}
}

// RecordGatewayFailed records a failed gateway call
func (tp *TelemetryProvider) RecordGatewayFailed(ctx context.Context, gateway string, duration time.Duration, errorType string) {
	if tp.gatewayFailed != nil {
		tp.gatewayFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("gateway", gateway),
			attribute.String("error_type", errorType),
		))
	}

	if tp.sendDuration != nil {
		tp.sendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("gateway", gateway),
			attribute.String("status", "error"),
		))
	}
}

// SetSpanError sets an error on the span
func (tp *TelemetryProvider) SetSpanError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks the span as successful
func (tp *TelemetryProvider) SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// Shutdown flushes and stops the exporter, if this provider started one
func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	if tp.traceProvider != nil {
		return tp.traceProvider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the tracer instance
func (tp *TelemetryProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Meter returns the meter instance
func (tp *TelemetryProvider) Meter() metric.Meter {
	return tp.meter
}

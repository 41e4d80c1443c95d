package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	invocations    otelmetric.Int64Counter
	duration       otelmetric.Float64Histogram
}

type Options struct {
	ServiceName    string
	TracingEnabled bool
	SampleRatio    float64
}

func New(opts Options) *Observability {
	o := &Observability{tracer: noop.NewTracerProvider().Tracer(opts.ServiceName)}

	if opts.TracingEnabled {
		o.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
		)
		otel.SetTracerProvider(o.tracerProvider)
		o.tracer = o.tracerProvider.Tracer(opts.ServiceName)
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(o.meterProvider)
	o.meter = o.meterProvider.Meter(opts.ServiceName)

	o.invocations, _ = o.meter.Int64Counter(
		"edge.invocations",
		otelmetric.WithDescription("Number of edge function invocations"),
	)
	o.duration, _ = o.meter.Float64Histogram(
		"edge.invocation.duration",
		otelmetric.WithDescription("Edge function invocation duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

// NewNoop records nothing; spans are non-recording.
func NewNoop(serviceName string) *Observability {
	return &Observability{tracer: noop.NewTracerProvider().Tracer(serviceName)}
}

// StartSpan opens a span for one function invocation.
func (o *Observability) StartSpan(ctx context.Context, function, requestID string) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, "edge."+function,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("function", function),
			attribute.String("request_id", requestID),
		),
	)
}

func (o *Observability) RecordInvocation(ctx context.Context, function, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("function", function),
		attribute.String("status", status),
	)
	if o.invocations != nil {
		o.invocations.Add(ctx, 1, attrs)
	}
	if o.duration != nil {
		o.duration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}

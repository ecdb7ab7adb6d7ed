package selfmetrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

type otelMetrics struct {
	provider *sdkmetric.MeterProvider

	enqueued    metric.Int64Counter
	dropped     metric.Int64Counter
	flushDur    metric.Float64Histogram
	flushFails  metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	spansSent   metric.Int64Counter
}

var _ Metrics = (*otelMetrics)(nil)

// NewOTel constructs a Metrics implementation exporting to endpoint over
// OTLP/gRPC every 10 seconds, instrumented with the same resource/runtime
// metrics conventions the rest of the ecosystem uses.
func NewOTel(ctx context.Context, endpoint, serviceName string) (Metrics, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithTimeout(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("selfmetrics: failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName+"-healops-sdk"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("selfmetrics: failed to create resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		return nil, fmt.Errorf("selfmetrics: failed to start runtime metrics: %w", err)
	}

	meter := mp.Meter("healops.sdk")

	m := &otelMetrics{provider: mp}
	m.enqueued, _ = meter.Int64Counter("healops.records.enqueued")
	m.dropped, _ = meter.Int64Counter("healops.records.dropped")
	m.flushDur, _ = meter.Float64Histogram("healops.batch.flush.duration")
	m.flushFails, _ = meter.Int64Counter("healops.batch.flush.failures")
	m.cacheHits, _ = meter.Int64Counter("healops.sourcemap.cache.hit")
	m.cacheMisses, _ = meter.Int64Counter("healops.sourcemap.cache.miss")
	m.spansSent, _ = meter.Int64Counter("healops.spans.exported")

	return m, nil
}

func (m *otelMetrics) RecordsEnqueued(n int) {
	m.enqueued.Add(context.Background(), int64(n))
}

func (m *otelMetrics) RecordsDropped(n int) {
	m.dropped.Add(context.Background(), int64(n))
}

func (m *otelMetrics) FlushDuration(seconds float64, ok bool) {
	m.flushDur.Record(context.Background(), seconds)
	if !ok {
		m.flushFails.Add(context.Background(), 1)
	}
}

func (m *otelMetrics) SourceMapCacheHit()  { m.cacheHits.Add(context.Background(), 1) }
func (m *otelMetrics) SourceMapCacheMiss() { m.cacheMisses.Add(context.Background(), 1) }
func (m *otelMetrics) SpansExported(n int) { m.spansSent.Add(context.Background(), int64(n)) }

func (m *otelMetrics) Close(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

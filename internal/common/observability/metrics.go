package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"deal-analyzer-client/internal/common/logger"
)

// Observability records request and wizard measurements through OpenTelemetry.
// A nil *Observability is valid and records nothing.
type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	requestDuration    otelmetric.Float64Histogram
	requestCounter     otelmetric.Int64Counter
	wizardTransitions  otelmetric.Int64Counter
	cacheInvalidations otelmetric.Int64Counter
}

// New wires a meter provider to a prometheus exporter on reg. A nil reg uses the
// default prometheus registerer.
func New(serviceName string, reg promclient.Registerer, log logger.Logger) *Observability {
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", map[string]interface{}{"error": err.Error()})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	requestDuration, _ := meter.Float64Histogram(
		"api.request.duration",
		otelmetric.WithDescription("Backend request duration"),
		otelmetric.WithUnit("ms"),
	)
	requestCounter, _ := meter.Int64Counter(
		"api.requests",
		otelmetric.WithDescription("Backend requests by operation and outcome"),
	)
	wizardTransitions, _ := meter.Int64Counter(
		"wizard.transitions",
		otelmetric.WithDescription("Deal wizard state transitions"),
	)
	cacheInvalidations, _ := meter.Int64Counter(
		"cache.invalidations",
		otelmetric.WithDescription("Invalidated cache tags"),
	)

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		requestDuration:    requestDuration,
		requestCounter:     requestCounter,
		wizardTransitions:  wizardTransitions,
		cacheInvalidations: cacheInvalidations,
	}
}

func (o *Observability) RecordRequest(ctx context.Context, operation string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("status", status),
	)
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, attrs)
	}
	if o.requestDuration != nil {
		o.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordTransition(ctx context.Context, from, to string) {
	if o == nil || o.wizardTransitions == nil {
		return
	}
	o.wizardTransitions.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (o *Observability) RecordInvalidation(ctx context.Context, tagType string) {
	if o == nil || o.cacheInvalidations == nil {
		return
	}
	o.cacheInvalidations.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("tag_type", tagType)))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}

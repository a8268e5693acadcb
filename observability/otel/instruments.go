package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the OTLP counterparts of the marketplace Prometheus
// collectors. They report through whichever meter provider is installed.
type Instruments struct {
	operations metric.Int64Counter
	latency    metric.Float64Histogram
}

// Meter returns the marketplace meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(TracerName)
}

// NewInstruments registers the marketplace instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	operations, err := meter.Int64Counter("market.operations",
		metric.WithDescription("Marketplace operations by outcome."),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("market.operation.duration",
		metric.WithDescription("Marketplace operation latency."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &Instruments{operations: operations, latency: latency}, nil
}

// RecordOperation counts one finished operation and its latency. A nil
// receiver records nothing.
func (i *Instruments) RecordOperation(ctx context.Context, op, outcome string, elapsed time.Duration) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("market.op", op),
		attribute.String("market.outcome", outcome),
	)
	i.operations.Add(ctx, 1, attrs)
	i.latency.Record(ctx, elapsed.Seconds(), attrs)
}

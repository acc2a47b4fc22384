package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/TierVault/internal/domain/record"
)

const meterName = "tiervault"

// Metrics holds all TierVault metric instruments. It mirrors the in-process
// tier counters out through the global meter, keyed by a tier attribute, and
// satisfies the coordinator's Recorder interface.
type Metrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	stores    metric.Int64Counter
	bytes     metric.Int64Counter
	evictions metric.Int64Counter
	errors    metric.Int64Counter
	latency   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.hits, err = meter.Int64Counter("tiervault.tier.hits",
		metric.WithDescription("Number of reads served by a tier"))
	if err != nil {
		return nil, err
	}

	m.misses, err = meter.Int64Counter("tiervault.tier.misses",
		metric.WithDescription("Number of reads a tier could not serve"))
	if err != nil {
		return nil, err
	}

	m.stores, err = meter.Int64Counter("tiervault.tier.stores",
		metric.WithDescription("Number of writes accepted by a tier"))
	if err != nil {
		return nil, err
	}

	m.bytes, err = meter.Int64Counter("tiervault.tier.bytes_written",
		metric.WithDescription("Payload bytes written to a tier"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	m.evictions, err = meter.Int64Counter("tiervault.tier.evictions",
		metric.WithDescription("Number of entries evicted from a tier"))
	if err != nil {
		return nil, err
	}

	m.errors, err = meter.Int64Counter("tiervault.tier.errors",
		metric.WithDescription("Number of failed tier operations"))
	if err != nil {
		return nil, err
	}

	m.latency, err = meter.Float64Histogram("tiervault.tier.latency_seconds",
		metric.WithDescription("Tier operation latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func tierAttr(t record.Tier) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("tier", t.String()))
}

func (m *Metrics) Hit(ctx context.Context, t record.Tier) {
	m.hits.Add(ctx, 1, tierAttr(t))
}

func (m *Metrics) Miss(ctx context.Context, t record.Tier) {
	m.misses.Add(ctx, 1, tierAttr(t))
}

func (m *Metrics) Store(ctx context.Context, t record.Tier, n int) {
	m.stores.Add(ctx, 1, tierAttr(t))
	m.bytes.Add(ctx, int64(n), tierAttr(t))
}

func (m *Metrics) Evictions(ctx context.Context, t record.Tier, n int) {
	m.evictions.Add(ctx, int64(n), tierAttr(t))
}

func (m *Metrics) TierError(ctx context.Context, t record.Tier) {
	m.errors.Add(ctx, 1, tierAttr(t))
}

func (m *Metrics) Latency(ctx context.Context, t record.Tier, d time.Duration) {
	m.latency.Record(ctx, d.Seconds(), tierAttr(t))
}

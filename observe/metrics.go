package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metrics records gateway call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording never blocks the call path.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed call with its duration and error status.
	// Every call is recorded exactly once, however it was served.
	RecordCall(ctx context.Context, call CallMeta, duration time.Duration, err error)

	// RecordCacheHit records a call served from the customer-scoped cache.
	RecordCacheHit(ctx context.Context, call CallMeta)

	// RecordJoin records a call that joined an in-flight upstream fetch
	// instead of starting its own.
	RecordJoin(ctx context.Context, call CallMeta)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	callTotal    metric.Int64Counter
	callErrors   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheHits    metric.Int64Counter
	joined       metric.Int64Counter
}

var _ Metrics = (*metricsImpl)(nil)

// NewMetrics creates the gateway call instruments on the given meter.
// Creating them on a no-op meter never fails and yields no-op metrics.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	callTotal, err := meter.Int64Counter(
		"edge.call.total",
		metric.WithDescription("Total number of gateway calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	callErrors, err := meter.Int64Counter(
		"edge.call.errors",
		metric.WithDescription("Total number of failed gateway calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"edge.call.duration_ms",
		metric.WithDescription("Gateway call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"edge.cache.hits",
		metric.WithDescription("Calls served from the customer-scoped cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	joined, err := meter.Int64Counter(
		"edge.coalesce.joined",
		metric.WithDescription("Calls that joined an in-flight upstream fetch"),
		metric.WithUnit("{join}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		callTotal:    callTotal,
		callErrors:   callErrors,
		durationHist: durationHist,
		cacheHits:    cacheHits,
		joined:       joined,
	}, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, call CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(call.attributes()...)

	m.callTotal.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

func (m *metricsImpl) RecordCacheHit(ctx context.Context, call CallMeta) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(call.attributes()...))
}

func (m *metricsImpl) RecordJoin(ctx context.Context, call CallMeta) {
	m.joined.Add(ctx, 1, metric.WithAttributes(call.attributes()...))
}

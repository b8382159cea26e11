package observe

import (
	"context"
	"time"
)

// FetchFunc is the signature of an upstream fetch: resolve the call's
// arguments against the origin API and return the raw response payload.
type FetchFunc func(ctx context.Context, call CallMeta, args map[string]any) ([]byte, error)

// Middleware wraps the upstream leg of a call with a nested span and
// debug/error logging. It deliberately records no counters: the pipeline
// records call metrics itself so that cache hits and coalesced joins, which
// never reach the upstream, are still counted.
//
// Contract:
//   - Concurrency: Wrap() returns a FetchFunc safe for concurrent use.
//   - Context: the wrapped function runs under the upstream span's context.
//   - Errors: errors from the wrapped function are recorded and propagated
//     unchanged.
type Middleware struct {
	tracer Tracer
	logger Logger
}

// NewMiddleware creates a Middleware from a tracer and logger.
func NewMiddleware(tracer Tracer, logger Logger) *Middleware {
	return &Middleware{
		tracer: tracer,
		logger: logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) *Middleware {
	return NewMiddleware(NewTracer(obs.Tracer()), obs.Logger())
}

// Wrap wraps a FetchFunc with an upstream span and structured logging.
func (m *Middleware) Wrap(fn FetchFunc) FetchFunc {
	return func(ctx context.Context, call CallMeta, args map[string]any) ([]byte, error) {
		ctx, span := m.tracer.StartUpstreamSpan(ctx, call)
		start := time.Now()

		result, err := fn(ctx, call, args)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)

		callLogger := m.logger.WithCall(call)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration) / float64(time.Millisecond)},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			callLogger.Error(ctx, "upstream fetch failed", fields...)
		} else {
			fields = append(fields, Field{Key: "bytes", Value: len(result)})
			callLogger.Debug(ctx, "upstream fetch completed", fields...)
		}

		return result, err
	}
}

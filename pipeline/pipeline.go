package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/edgegate/auth"
	"github.com/jonwraymond/edgegate/cache"
	"github.com/jonwraymond/edgegate/coalesce"
	"github.com/jonwraymond/edgegate/connpool"
	"github.com/jonwraymond/edgegate/limits"
	"github.com/jonwraymond/edgegate/observe"
)

// Config assembles the pipeline's collaborators. Guard, Cache, Flights and
// Pool are required. Limiter and Observer are optional: a nil Limiter means
// no per-customer limits, a nil Observer disables telemetry.
type Config struct {
	// Guard validates and authorizes the customer behind every call.
	Guard *auth.Guard

	// Cache stores read results, scoped per customer and namespace.
	Cache *cache.Cache[json.RawMessage]

	// Flights collapses concurrent identical reads into one upstream call.
	Flights *coalesce.Coalescer[json.RawMessage]

	// Pool owns the upstream HTTP connections. Handlers reach it through
	// Client; Close tears it down.
	Pool *connpool.Pool

	// Limiter enforces per-customer rate and concurrency bounds.
	Limiter *limits.Limiter

	// Observer supplies the tracer, meter and logger.
	Observer observe.Observer
}

// Request is one agent call into the gateway.
type Request struct {
	// Operation names the registered operation to execute.
	Operation string

	// Arguments are the operation's parameters as decoded from the call.
	Arguments map[string]any

	// Customer identifies the tenant making the call. Empty falls back to
	// the guard's default customer unless the operation demands an
	// explicit identity.
	Customer string
}

// Pipeline executes operations on behalf of AI agents. Every call is
// validated, limited, cached, coalesced and instrumented before the
// upstream provider sees it.
//
// Contract:
// - Reads: served from the customer's cache when possible; concurrent
//   identical misses share one upstream fetch. Failures are returned, never
//   cached, and never evict a value cached earlier.
// - Writes: bypass cache and coalescer; on success the declared namespaces
//   are flushed for the calling customer only.
// - Errors: every failure is a *CallError wrapping the underlying kind;
//   errors.Is and errors.As see through it.
// - Concurrency: safe for concurrent use. Calls for different customers
//   and operations proceed in parallel.
type Pipeline struct {
	guard   *auth.Guard
	cache   *cache.Cache[json.RawMessage]
	flights *coalesce.Coalescer[json.RawMessage]
	pool    *connpool.Pool
	limiter *limits.Limiter

	obs     observe.Observer
	tracer  observe.Tracer
	metrics observe.Metrics
	mw      *observe.Middleware

	reg *registry
}

// New assembles a pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Guard == nil {
		return nil, fmt.Errorf("pipeline: guard is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("pipeline: cache is required")
	}
	if cfg.Flights == nil {
		return nil, fmt.Errorf("pipeline: coalescer is required")
	}
	if cfg.Pool == nil {
		return nil, fmt.Errorf("pipeline: connection pool is required")
	}
	if cfg.Observer == nil {
		cfg.Observer = observe.NopObserver()
	}

	metrics, err := observe.NewMetrics(cfg.Observer.Meter())
	if err != nil {
		return nil, fmt.Errorf("pipeline: metrics setup: %w", err)
	}
	tracer := observe.NewTracer(cfg.Observer.Tracer())

	return &Pipeline{
		guard:   cfg.Guard,
		cache:   cfg.Cache,
		flights: cfg.Flights,
		pool:    cfg.Pool,
		limiter: cfg.Limiter,
		obs:     cfg.Observer,
		tracer:  tracer,
		metrics: metrics,
		mw:      observe.NewMiddleware(tracer, cfg.Observer.Logger()),
		reg:     newRegistry(),
	}, nil
}

// Register adds an operation. Registration normally happens at startup but
// is safe at any time.
func (p *Pipeline) Register(op Operation) error {
	return p.reg.register(op)
}

// Operations returns the registered operation names, sorted.
func (p *Pipeline) Operations() []string {
	return p.reg.names()
}

// Client exposes the pooled HTTP client so operation handlers share the
// gateway's upstream connections.
func (p *Pipeline) Client() *http.Client {
	return p.pool.Client()
}

// Execute runs one call end to end and returns the operation's result.
// On failure the returned error is a *CallError; unwrap it for the kind.
func (p *Pipeline) Execute(ctx context.Context, req Request) (json.RawMessage, error) {
	callID := uuid.NewString()

	op, ok := p.reg.lookup(req.Operation)
	if !ok {
		// Unknown names never reach the telemetry pipeline: operation is
		// a metric label and request-controlled values would blow up its
		// cardinality.
		return nil, &CallError{
			Operation: req.Operation,
			Customer:  req.Customer,
			CallID:    callID,
			Err:       fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation),
		}
	}

	call := observe.CallMeta{
		Operation: op.Name,
		Namespace: op.Namespace,
		Customer:  req.Customer,
	}

	ctx, span := p.tracer.StartSpan(ctx, call)
	start := time.Now()

	result, err := p.run(ctx, op, req, &call)

	duration := time.Since(start)
	p.tracer.EndSpan(span, err)
	p.metrics.RecordCall(ctx, call, duration, err)
	p.logOutcome(ctx, call, callID, duration, len(result), err)

	if err != nil {
		return nil, &CallError{
			Operation: op.Name,
			Customer:  call.Customer,
			CallID:    callID,
			Err:       err,
		}
	}
	return result, nil
}

// run executes the call inside the telemetry window. call.Customer is
// rewritten to the resolved identity so metrics and logs attribute the
// call to the tenant it ran as.
func (p *Pipeline) run(ctx context.Context, op Operation, req Request, call *observe.CallMeta) (json.RawMessage, error) {
	id, err := p.admit(ctx, op, req)
	if err != nil {
		return nil, err
	}
	call.Customer = id.CustomerID
	ctx = auth.WithIdentity(ctx, id)

	if p.limiter != nil {
		release, err := p.limiter.Acquire(ctx, id.CustomerID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	if op.Mutating {
		return p.executeWrite(ctx, op, req.Arguments, *call)
	}
	return p.executeRead(ctx, op, req.Arguments, *call)
}

// admit resolves and authorizes the caller's identity.
func (p *Pipeline) admit(ctx context.Context, op Operation, req Request) (*auth.Identity, error) {
	if op.RequireCustomer && strings.TrimSpace(req.Customer) == "" {
		return nil, fmt.Errorf("%w: operation %q does not accept the default customer",
			auth.ErrIdentityRequired, op.Name)
	}

	id, err := p.guard.Validate(ctx, req.Customer)
	if err != nil {
		return nil, err
	}

	requirement := auth.Requirement{
		Elevated:   op.RequireElevated,
		Permission: op.Permission,
	}
	if err := p.guard.Authorize(ctx, id, requirement); err != nil {
		return nil, err
	}
	return id, nil
}

// executeRead serves a read through the cache and the coalescer.
func (p *Pipeline) executeRead(ctx context.Context, op Operation, args map[string]any, call observe.CallMeta) (json.RawMessage, error) {
	key, err := cache.NewKey(call.Customer, op.Namespace, op.Name, args)
	if err != nil {
		// Arguments the fingerprint cannot serialize degrade the call to
		// a direct upstream fetch, uncached and uncoalesced.
		return p.fetch(ctx, op, args, call)
	}

	if op.NoCoalesce {
		return p.cachedFetch(ctx, op, args, call, key)
	}

	value, coalesced, err := p.flights.Do(ctx, key.String(), func(ctx context.Context) (json.RawMessage, error) {
		return p.cachedFetch(ctx, op, args, call, key)
	})
	if coalesced {
		p.metrics.RecordJoin(ctx, call)
	}
	return value, err
}

// cachedFetch is the coalesced producer: cache lookup, then upstream.
func (p *Pipeline) cachedFetch(ctx context.Context, op Operation, args map[string]any, call observe.CallMeta, key cache.Key) (json.RawMessage, error) {
	if value, ok := p.cache.Get(ctx, key); ok {
		p.metrics.RecordCacheHit(ctx, call)
		return value, nil
	}

	result, err := p.fetch(ctx, op, args, call)
	if err != nil {
		// The failure propagates to every waiter. Whatever the cache
		// already holds for this key stays untouched.
		return nil, err
	}

	if err := p.cache.Set(ctx, key, result, op.TTL); err != nil {
		p.obs.Logger().WithCall(call).Warn(ctx, "result not cached",
			observe.Field{Key: "error", Value: err.Error()})
	}
	return result, nil
}

// executeWrite runs a mutation and flushes the namespaces it staled.
func (p *Pipeline) executeWrite(ctx context.Context, op Operation, args map[string]any, call observe.CallMeta) (json.RawMessage, error) {
	result, err := p.fetch(ctx, op, args, call)
	if err != nil {
		return nil, err
	}

	namespaces := op.Invalidates
	if len(namespaces) == 0 {
		namespaces = []string{op.Namespace}
	}
	for _, ns := range namespaces {
		p.cache.DeleteNamespace(ctx, call.Customer, ns)
	}
	return result, nil
}

// fetch runs the operation handler inside the upstream telemetry leg.
func (p *Pipeline) fetch(ctx context.Context, op Operation, args map[string]any, call observe.CallMeta) (json.RawMessage, error) {
	fn := p.mw.Wrap(func(ctx context.Context, _ observe.CallMeta, args map[string]any) ([]byte, error) {
		return op.Handler(ctx, args)
	})
	return fn(ctx, call, args)
}

func (p *Pipeline) logOutcome(ctx context.Context, call observe.CallMeta, callID string, d time.Duration, size int, err error) {
	logger := p.obs.Logger().WithCall(call)
	fields := []observe.Field{
		{Key: "call_id", Value: callID},
		{Key: "duration_ms", Value: float64(d) / float64(time.Millisecond)},
	}
	if err != nil {
		fields = append(fields, observe.Field{Key: "error", Value: err.Error()})
		logger.Error(ctx, "call failed", fields...)
		return
	}
	fields = append(fields, observe.Field{Key: "bytes", Value: size})
	logger.Info(ctx, "call completed", fields...)
}

// Stats is a point-in-time snapshot across the pipeline's components.
type Stats struct {
	// Cache reports the customer-scoped cache.
	Cache cache.Stats

	// Flights reports the request coalescer.
	Flights coalesce.Stats

	// Pool reports the upstream connection pool.
	Pool connpool.Stats

	// Auth reports the identity guard.
	Auth auth.Stats

	// Limits reports the per-customer limiter. Zero when no limiter is
	// configured.
	Limits limits.Stats
}

// Stats snapshots every component the pipeline composes.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Cache:   p.cache.Stats(),
		Flights: p.flights.Stats(),
		Pool:    p.pool.Stats(),
		Auth:    p.guard.Stats(),
	}
	if p.limiter != nil {
		s.Limits = p.limiter.Stats()
	}
	return s
}

// Close releases the pipeline's upstream resources. In-flight calls drain
// naturally; stop accepting new calls first.
func (p *Pipeline) Close() {
	p.pool.Close()
}

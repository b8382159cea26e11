package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/edgegate/coalesce"
)

// GuardConfig configures the identity guard.
type GuardConfig struct {
	// Source resolves customer IDs to their configuration. Required.
	Source Source

	// AllowList restricts the gateway to the listed customer IDs.
	// Empty permits every known customer.
	AllowList []string

	// DefaultCustomer substitutes for calls arriving without a customer ID.
	// Empty means no substitution.
	DefaultCustomer string

	// CacheTTL is how long a resolution (valid or invalid) is trusted
	// before the source is consulted again. Default: 5 minutes.
	CacheTTL time.Duration

	// OnValidate, when set, fires after every successful validation with
	// the resolved customer ID and whether the resolution came from cache.
	// Audit only; it must not block.
	OnValidate func(customerID string, fromCache bool)
}

// Guard validates customer identities and authorizes operations against
// their entitlements.
//
// Contract:
// - Caching: resolution outcomes, including "unknown customer", are trusted
//   for CacheTTL. Policy checks (allow-list, elevated access, permissions)
//   are evaluated on every call regardless of cache warmth.
// - Errors: denials are sentinel errors (ErrIdentityRequired,
//   ErrForbiddenCustomer, ErrElevatedRequired, ErrPermissionDenied);
//   anything else is an infrastructure failure and is never cached.
// - Concurrency: safe for concurrent use. Concurrent validations of the
//   same cold customer share one directory lookup.
type Guard struct {
	cfg     GuardConfig
	allow   map[string]struct{} // nil when no allow-list is configured
	flights *coalesce.Coalescer[*resolution]

	mu    sync.RWMutex
	cache map[string]*resolution

	lookups   atomic.Uint64
	cacheHits atomic.Uint64
	denials   atomic.Uint64
}

// resolution is the cached outcome of one directory lookup.
type resolution struct {
	identity   *Identity // nil when the customer is unknown or disabled
	reason     string
	resolvedAt time.Time
}

// NewGuard creates a guard around the given customer source.
func NewGuard(cfg GuardConfig) (*Guard, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("auth: guard requires a customer source")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	var allow map[string]struct{}
	if len(cfg.AllowList) > 0 {
		allow = make(map[string]struct{}, len(cfg.AllowList))
		for _, id := range cfg.AllowList {
			allow[id] = struct{}{}
		}
	}

	return &Guard{
		cfg:     cfg,
		allow:   allow,
		flights: coalesce.New[*resolution](),
		cache:   make(map[string]*resolution),
	}, nil
}

// Validate resolves and checks the identity behind a call. An empty
// customerID takes the configured default. The returned identity is shared
// with other callers; treat it as read-only.
func (g *Guard) Validate(ctx context.Context, customerID string) (*Identity, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		id = g.cfg.DefaultCustomer
	}
	if id == "" {
		g.denials.Add(1)
		return nil, ErrIdentityRequired
	}

	// Allow-list first: no directory traffic for customers this gateway
	// will never serve.
	if g.allow != nil {
		if _, ok := g.allow[id]; !ok {
			g.denials.Add(1)
			return nil, fmt.Errorf("%w: %q is not on the allow list", ErrForbiddenCustomer, id)
		}
	}

	res, fromCache, err := g.resolution(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.identity == nil {
		g.denials.Add(1)
		return nil, fmt.Errorf("%w: %s", ErrForbiddenCustomer, res.reason)
	}
	if g.cfg.OnValidate != nil {
		g.cfg.OnValidate(id, fromCache)
	}
	return res.identity, nil
}

// Requirement states what an operation demands of its caller.
type Requirement struct {
	// Elevated requires the customer to hold elevated access.
	Elevated bool

	// Permission names a permission the customer must hold. Empty means
	// none required.
	Permission string
}

// Authorize checks a validated identity against an operation's requirement.
// Checks run on every call; a cached identity gets no grace.
func (g *Guard) Authorize(_ context.Context, id *Identity, req Requirement) error {
	if id == nil {
		g.denials.Add(1)
		return ErrIdentityRequired
	}
	if req.Elevated && !id.Elevated {
		g.denials.Add(1)
		return fmt.Errorf("%w: customer %q", ErrElevatedRequired, id.CustomerID)
	}
	if req.Permission != "" && !id.HasPermission(req.Permission) {
		g.denials.Add(1)
		return fmt.Errorf("%w: customer %q lacks %q", ErrPermissionDenied, id.CustomerID, req.Permission)
	}
	return nil
}

// Invalidate drops the cached resolution for a customer so the next
// validation consults the source. Use after directory changes.
func (g *Guard) Invalidate(customerID string) {
	g.mu.Lock()
	delete(g.cache, customerID)
	g.mu.Unlock()
}

// ClearCache drops every cached resolution. Counters are preserved.
func (g *Guard) ClearCache() {
	g.mu.Lock()
	g.cache = make(map[string]*resolution)
	g.mu.Unlock()
}

// Stats returns a snapshot of guard counters and the cached customer IDs.
func (g *Guard) Stats() Stats {
	g.mu.RLock()
	ids := make([]string, 0, len(g.cache))
	for id := range g.cache {
		ids = append(ids, id)
	}
	g.mu.RUnlock()
	sort.Strings(ids)

	return Stats{
		Lookups:     g.lookups.Load(),
		CacheHits:   g.cacheHits.Load(),
		Denials:     g.denials.Load(),
		Cached:      len(ids),
		CustomerIDs: ids,
	}
}

// resolution returns a trusted resolution for id, consulting the source on
// miss or staleness. Concurrent cold lookups for one customer coalesce.
// fromCache reports that no directory lookup ran on behalf of this call.
func (g *Guard) resolution(ctx context.Context, id string) (*resolution, bool, error) {
	g.mu.RLock()
	res, ok := g.cache[id]
	g.mu.RUnlock()
	if ok && time.Since(res.resolvedAt) < g.cfg.CacheTTL {
		g.cacheHits.Add(1)
		return res, true, nil
	}

	looked := false
	res, _, err := g.flights.Do(ctx, id, func(ctx context.Context) (*resolution, error) {
		// A flight that completed between the staleness check and this
		// producer starting has already refreshed the cache.
		g.mu.RLock()
		res, ok := g.cache[id]
		g.mu.RUnlock()
		if ok && time.Since(res.resolvedAt) < g.cfg.CacheTTL {
			return res, nil
		}
		looked = true
		return g.resolve(ctx, id)
	})
	return res, !looked, err
}

func (g *Guard) resolve(ctx context.Context, id string) (*resolution, error) {
	g.lookups.Add(1)

	cfg, err := g.cfg.Source.Resolve(ctx, id)
	if err != nil {
		// Infrastructure failure. Not cached, so recovery is immediate.
		return nil, fmt.Errorf("auth: resolve customer %q: %w", id, err)
	}

	res := &resolution{resolvedAt: time.Now()}
	switch {
	case cfg == nil:
		res.reason = fmt.Sprintf("unknown customer %q", id)
	case cfg.Disabled:
		res.reason = fmt.Sprintf("customer %q is disabled", id)
	default:
		res.identity = &Identity{
			CustomerID:  cfg.ID,
			Name:        cfg.Name,
			Elevated:    cfg.Elevated,
			Permissions: cfg.Permissions,
			ResolvedAt:  res.resolvedAt,
		}
	}

	g.mu.Lock()
	g.cache[id] = res
	g.mu.Unlock()
	return res, nil
}

// Stats is a point-in-time snapshot of guard counters.
type Stats struct {
	// Lookups counts customer directory resolutions.
	Lookups uint64

	// CacheHits counts validations served from cached resolutions.
	CacheHits uint64

	// Denials counts rejected validations and authorizations.
	Denials uint64

	// Cached is the number of resolutions currently held.
	Cached int

	// CustomerIDs lists the customers with a cached resolution, sorted.
	CustomerIDs []string
}

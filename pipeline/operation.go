package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Handler executes one operation against the upstream provider. Read
// handlers fetch and serialize; mutating handlers perform the side effect.
// Results must be self-contained JSON: the pipeline caches them and hands
// the same bytes to every coalesced waiter.
type Handler func(ctx context.Context, args map[string]any) (json.RawMessage, error)

// Operation declares a callable operation and the policies the pipeline
// enforces around it.
type Operation struct {
	// Name is the operation name agents call, unique within the pipeline.
	Name string

	// Namespace groups operations whose cached results go stale together,
	// e.g. "dns" or "cdn". Empty is permitted.
	Namespace string

	// Mutating marks an operation with upstream side effects. Mutating
	// operations are never cached or coalesced, and on success they
	// invalidate cached reads.
	Mutating bool

	// NoCoalesce exempts a read from request coalescing. Use for reads
	// that must observe the upstream freshly on every call.
	NoCoalesce bool

	// RequireCustomer refuses calls without an explicit customer ID even
	// when the guard has a default customer configured.
	RequireCustomer bool

	// RequireElevated restricts the operation to customers holding
	// elevated access.
	RequireElevated bool

	// Permission names a permission the customer must hold. Empty means
	// none beyond a valid identity.
	Permission string

	// TTL bounds how long results stay cached. Zero takes the cache
	// default.
	TTL time.Duration

	// Invalidates lists the namespaces a successful mutation flushes for
	// the calling customer. Empty defaults to the operation's own
	// namespace.
	Invalidates []string

	// Handler executes the operation. Required.
	Handler Handler
}

// registry holds registered operations by name.
type registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

func newRegistry() *registry {
	return &registry{ops: make(map[string]Operation)}
}

func (r *registry) register(op Operation) error {
	op.Name = strings.TrimSpace(op.Name)
	if op.Name == "" {
		return fmt.Errorf("pipeline: operation name is required")
	}
	if op.Handler == nil {
		return fmt.Errorf("pipeline: operation %q has no handler", op.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateOperation, op.Name)
	}
	r.ops[op.Name] = op
	return nil
}

func (r *registry) lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[name]
	return op, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

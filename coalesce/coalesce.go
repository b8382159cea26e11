package coalesce

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Coalescer deduplicates concurrent calls that share a key.
//
// Contract:
// - Single flight: at most one producer runs per key at a time. Callers
//   arriving while it runs join it; a call arriving after it completes
//   starts a new flight.
// - Propagation: the producer's result or error is delivered to every
//   waiter identically.
// - Cancellation: a waiter whose context ends receives its context error;
//   the flight and the remaining waiters are unaffected.
// - Concurrency: safe for concurrent use.
type Coalescer[V any] struct {
	group singleflight.Group

	mu        sync.Mutex
	inflight  map[string]struct{}
	total     uint64
	producers uint64
}

// New creates a coalescer for values of type V.
func New[V any]() *Coalescer[V] {
	return &Coalescer[V]{
		inflight: make(map[string]struct{}),
	}
}

// Do executes fn once per flight of key, collapsing concurrent callers into
// that single execution. coalesced reports whether this caller's result was
// produced by a flight another caller started.
//
// The producer runs on a context that carries the initiating caller's values
// but not its cancellation, so no single waiter's deadline can fail the
// rest. fn's error is returned verbatim to every waiter.
func (c *Coalescer[V]) Do(ctx context.Context, key string, fn func(context.Context) (V, error)) (value V, coalesced bool, err error) {
	c.mu.Lock()
	c.total++
	c.mu.Unlock()

	produced := false
	prodCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (any, error) {
		c.noteProducer(key)
		defer c.noteDone(key)
		produced = true
		return fn(prodCtx)
	})

	select {
	case <-ctx.Done():
		return value, false, ctx.Err()
	case res := <-ch:
		coalesced = !produced
		if res.Err != nil {
			return value, coalesced, res.Err
		}
		if res.Val != nil {
			value = res.Val.(V)
		}
		return value, coalesced, nil
	}
}

// Forget makes the next Do for key start a new flight even if one is still
// running. After a mutation this keeps readers from joining a flight that
// started before the write.
func (c *Coalescer[V]) Forget(key string) {
	c.group.Forget(key)
}

// Stats returns a snapshot of the coalescer's counters.
func (c *Coalescer[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		InFlight:  len(c.inflight),
		Total:     c.total,
		Coalesced: c.total - c.producers,
	}
}

func (c *Coalescer[V]) noteProducer(key string) {
	c.mu.Lock()
	c.producers++
	c.inflight[key] = struct{}{}
	c.mu.Unlock()
}

func (c *Coalescer[V]) noteDone(key string) {
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
}

// Stats is a point-in-time snapshot of coalescer counters.
type Stats struct {
	// InFlight is the number of producers currently running.
	InFlight int

	// Total counts every Do call.
	Total uint64

	// Coalesced counts calls served by joining another caller's flight.
	Coalesced uint64
}

// CoalesceRate returns coalesced calls as a fraction of all calls, or 0
// when nothing has been called yet.
func (s Stats) CoalesceRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Coalesced) / float64(s.Total)
}

package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// Cache is a bounded in-memory store for values of type V, keyed by
// customer-scoped keys.
//
// Contract:
// - Bounds: both MaxEntries and MaxMemory hold at all times; the least
//   recently used entries are evicted to make room.
// - Expiry: entries expire lazily on read. Background sweeping is an
//   optional optimization, never a correctness requirement.
// - Isolation: writes require a customer component on the key, and
//   namespace invalidation only touches the given customer's entries.
// - Concurrency: all methods are safe for concurrent use.
type Cache[V any] struct {
	cfg    Config
	sizeOf SizeFunc[V]

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	byScope map[scope]map[string]struct{}
	memory  int64

	hits        uint64
	liveHits    uint64 // hits carried by entries still resident
	misses      uint64
	evictions   uint64
	expirations uint64
}

// scope addresses the set of entries one customer holds in one namespace.
type scope struct {
	customer  string
	namespace string
}

type entry[V any] struct {
	key       Key
	value     V
	size      int64
	hits      uint64
	expiresAt time.Time
}

// New creates a cache bounded by cfg. sizeOf estimates each value's
// footprint; pass nil to use JSONSize.
func New[V any](cfg Config, sizeOf SizeFunc[V]) *Cache[V] {
	if sizeOf == nil {
		sizeOf = JSONSize[V]
	}
	return &Cache[V]{
		cfg:     cfg.withDefaults(),
		sizeOf:  sizeOf,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		byScope: make(map[scope]map[string]struct{}),
	}
}

// Get returns the live value for key. Expired entries are removed on access
// and reported as misses. A hit refreshes the entry's recency.
func (c *Cache[V]) Get(_ context.Context, key Key) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key.String()]
	if !ok {
		c.misses++
		return zero, false
	}

	ent := el.Value.(*entry[V])
	if time.Now().After(ent.expiresAt) {
		c.removeElement(el)
		c.expirations++
		c.misses++
		return zero, false
	}

	c.order.MoveToFront(el)
	ent.hits++
	c.hits++
	c.liveHits++
	return ent.value, true
}

// Set stores value under key for ttl. A zero or negative ttl takes the
// configured default, and all TTLs are clamped to the configured maximum.
// Keys without a customer are rejected.
func (c *Cache[V]) Set(_ context.Context, key Key, value V, ttl time.Duration) error {
	if err := key.validate(); err != nil {
		return err
	}

	size := c.sizeOf(value)
	if size <= 0 {
		size = DefaultSizeEstimate
	}
	if size > c.cfg.MaxMemory {
		return fmt.Errorf("%w: %d bytes against a %d byte bound", ErrValueTooLarge, size, c.cfg.MaxMemory)
	}

	expiresAt := time.Now().Add(c.cfg.EffectiveTTL(ttl))

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replace any existing entry first so bounds account for the new size.
	if el, ok := c.entries[key.String()]; ok {
		c.removeElement(el)
	}

	for (c.memory+size > c.cfg.MaxMemory || c.order.Len() >= c.cfg.MaxEntries) && c.order.Len() > 0 {
		c.evictOldest()
	}

	ent := &entry[V]{key: key, value: value, size: size, expiresAt: expiresAt}
	c.entries[key.String()] = c.order.PushFront(ent)
	c.memory += size
	c.index(key)
	return nil
}

// Delete removes the entry for key and reports whether one was present.
func (c *Cache[V]) Delete(_ context.Context, key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key.String()]
	if ok {
		c.removeElement(el)
	}
	return ok
}

// DeleteNamespace removes every entry the given customer holds in namespace
// and returns how many were dropped. Entries of other customers, and the
// customer's entries in other namespaces, are untouched.
func (c *Cache[V]) DeleteNamespace(_ context.Context, customer, namespace string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byScope[scope{customer: customer, namespace: namespace}]
	n := len(keys)
	for k := range keys {
		if el, ok := c.entries[k]; ok {
			c.removeElement(el)
		}
	}
	return n
}

// Clear drops every entry. Counters are preserved.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.byScope = make(map[scope]map[string]struct{})
	c.memory = 0
	c.liveHits = 0
}

// Stats returns a snapshot of the cache's counters and occupancy.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Entries:     c.order.Len(),
		Memory:      c.memory,
		Hits:        c.hits,
		LiveHits:    c.liveHits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

// StartSweep launches a background goroutine that drops expired entries
// every interval, reclaiming memory sooner than lazy expiry would. The
// returned stop function halts it and is safe to call more than once.
func (c *Cache[V]) StartSweep(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.sweep(time.Now())
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

func (c *Cache[V]) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if ent := el.Value.(*entry[V]); now.After(ent.expiresAt) {
			c.removeElement(el)
			c.expirations++
		}
		el = prev
	}
}

func (c *Cache[V]) evictOldest() {
	if el := c.order.Back(); el != nil {
		c.removeElement(el)
		c.evictions++
	}
}

// removeElement unlinks an entry from the recency list, the key map, and the
// scope index. Callers must hold mu.
func (c *Cache[V]) removeElement(el *list.Element) {
	ent := el.Value.(*entry[V])
	c.order.Remove(el)
	delete(c.entries, ent.key.String())
	c.memory -= ent.size
	c.liveHits -= ent.hits

	sc := scope{customer: ent.key.Customer, namespace: ent.key.Namespace}
	if keys, ok := c.byScope[sc]; ok {
		delete(keys, ent.key.String())
		if len(keys) == 0 {
			delete(c.byScope, sc)
		}
	}
}

func (c *Cache[V]) index(key Key) {
	sc := scope{customer: key.Customer, namespace: key.Namespace}
	keys, ok := c.byScope[sc]
	if !ok {
		keys = make(map[string]struct{})
		c.byScope[sc] = keys
	}
	keys[key.String()] = struct{}{}
}

package limits

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config configures the per-customer limits.
type Config struct {
	// Rate is the number of calls allowed per second, per customer.
	// Default: 100
	Rate float64

	// Burst is the token bucket depth per customer.
	// Default: 10
	Burst int

	// MaxConcurrent is the number of in-flight calls allowed per customer.
	// Default: 10
	MaxConcurrent int
}

// Limiter enforces rate and concurrency limits independently per customer.
//
// Contract:
// - Isolation: one customer exhausting its budget never affects another's.
// - Rejection: limits fail fast with ErrRateLimited or ErrTooManyInFlight;
//   there is no queueing.
// - Concurrency: safe for concurrent use.
type Limiter struct {
	cfg Config

	mu        sync.Mutex
	customers map[string]*customerLimiter
}

// customerLimiter is one customer's token bucket and slot pool.
type customerLimiter struct {
	sem chan struct{}

	mu                  sync.Mutex
	tokens              float64
	lastRefresh         time.Time
	rejectedRate        int64
	rejectedConcurrency int64
}

// New creates a limiter with the given per-customer budgets.
func New(cfg Config) *Limiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}

	return &Limiter{
		cfg:       cfg,
		customers: make(map[string]*customerLimiter),
	}
}

// Acquire claims a call slot and a rate token for the customer. On success
// the returned release function must be called when the call completes; it
// is safe to call more than once.
func (l *Limiter) Acquire(ctx context.Context, customerID string) (release func(), err error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := l.customer(customerID)

	// Concurrency slot first so a rejected call never burns a rate token.
	select {
	case c.sem <- struct{}{}:
	default:
		c.mu.Lock()
		c.rejectedConcurrency++
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: customer %q", ErrTooManyInFlight, customerID)
	}

	if !c.allow(l.cfg) {
		<-c.sem
		return nil, fmt.Errorf("%w: customer %q", ErrRateLimited, customerID)
	}

	var once sync.Once
	return func() { once.Do(func() { <-c.sem }) }, nil
}

// Execute runs op within the customer's limits.
func (l *Limiter) Execute(ctx context.Context, customerID string, op func(context.Context) error) error {
	release, err := l.Acquire(ctx, customerID)
	if err != nil {
		return err
	}
	defer release()

	return op(ctx)
}

// Stats returns a snapshot aggregated across customers.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{Customers: len(l.customers)}
	for _, c := range l.customers {
		s.Active += len(c.sem)
		c.mu.Lock()
		s.RateRejections += c.rejectedRate
		s.ConcurrencyRejections += c.rejectedConcurrency
		c.mu.Unlock()
	}
	return s
}

func (l *Limiter) customer(id string) *customerLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.customers[id]
	if !ok {
		c = &customerLimiter{
			sem:         make(chan struct{}, l.cfg.MaxConcurrent),
			tokens:      float64(l.cfg.Burst),
			lastRefresh: time.Now(),
		}
		l.customers[id] = c
	}
	return c
}

// allow refills the bucket for elapsed time and takes one token if available.
func (c *customerLimiter) allow(cfg Config) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(c.lastRefresh)
	c.lastRefresh = now

	c.tokens += elapsed.Seconds() * cfg.Rate
	if c.tokens > float64(cfg.Burst) {
		c.tokens = float64(cfg.Burst)
	}

	if c.tokens >= 1 {
		c.tokens--
		return true
	}

	c.rejectedRate++
	return false
}

// Stats is a point-in-time snapshot aggregated over all customers.
type Stats struct {
	// Customers is the number of customers with limit state.
	Customers int

	// Active is the number of calls currently in flight across customers.
	Active int

	// RateRejections counts calls denied by empty token buckets.
	RateRejections int64

	// ConcurrencyRejections counts calls denied at the concurrency cap.
	ConcurrencyRejections int64
}

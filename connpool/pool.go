package connpool

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"sync"
	"sync/atomic"
	"time"
)

// Config tunes the outbound connection pool.
type Config struct {
	// MaxConns caps connections per upstream host, active and idle
	// combined. Requests beyond the cap wait for a free connection.
	// Zero applies the default of 50.
	MaxConns int

	// MaxIdle caps the idle keep-alive connections retained per host.
	// Zero applies the default of 10.
	MaxIdle int

	// IdleTimeout is how long an idle connection is kept before closing.
	// Zero applies the default of 30 seconds.
	IdleTimeout time.Duration

	// Timeout bounds an entire request through the pooled client, from
	// dialing through reading the body. Zero applies the default of
	// 60 seconds.
	Timeout time.Duration

	// DialTimeout bounds establishing one TCP connection.
	// Zero applies the default of 10 seconds.
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	// Zero applies the default of 10 seconds.
	TLSHandshakeTimeout time.Duration
}

// DefaultConfig returns the default pool bounds.
// MaxConns: 50, MaxIdle: 10, IdleTimeout: 30s, Timeout: 60s,
// DialTimeout: 10s, TLSHandshakeTimeout: 10s.
func DefaultConfig() Config {
	return Config{
		MaxConns:            50,
		MaxIdle:             10,
		IdleTimeout:         30 * time.Second,
		Timeout:             60 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxConns <= 0 {
		c.MaxConns = def.MaxConns
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = def.MaxIdle
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.TLSHandshakeTimeout <= 0 {
		c.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}
	return c
}

// Pool is a keep-alive HTTP connection pool shared by all upstream calls.
//
// Contract:
// - Reuse: an idle connection to the target host is preferred over dialing;
//   dials happen only when nothing idle is available.
// - Bounds: at most MaxConns connections exist per host; excess requests
//   queue for a free connection rather than dialing past the cap.
// - Concurrency: safe for concurrent use. One pool serves every customer;
//   isolation lives in cache keys and auth, not in sockets.
type Pool struct {
	cfg       Config
	client    *http.Client
	transport *http.Transport

	created atomic.Int64
	open    atomic.Int64
	reused  atomic.Int64
	active  atomic.Int64
}

// New creates a pool with the given bounds.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{cfg: cfg}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	p.transport = &http.Transport{
		DialContext:         p.countingDial(dialer),
		DisableKeepAlives:   false,
		MaxConnsPerHost:     cfg.MaxConns,
		MaxIdleConns:        cfg.MaxConns,
		MaxIdleConnsPerHost: cfg.MaxIdle,
		IdleConnTimeout:     cfg.IdleTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
	}
	p.client = &http.Client{
		Transport: &countingRoundTripper{pool: p, next: p.transport},
		Timeout:   cfg.Timeout,
	}
	return p
}

// Client returns the pooled HTTP client. Handlers use it for every upstream
// call so connections are shared across operations and customers.
func (p *Pool) Client() *http.Client {
	return p.client
}

// Stats returns a snapshot of pool counters. Idle is derived as open minus
// active and is approximate while requests are in motion.
func (p *Pool) Stats() Stats {
	open := p.open.Load()
	active := p.active.Load()
	idle := open - active
	if idle < 0 {
		idle = 0
	}
	return Stats{
		Created: p.created.Load(),
		Open:    open,
		Active:  active,
		Idle:    idle,
		Reused:  p.reused.Load(),
	}
}

// Close drops all idle connections. Requests in flight finish on their
// connections, which are closed once released.
func (p *Pool) Close() {
	p.transport.CloseIdleConnections()
}

func (p *Pool) countingDial(dialer *net.Dialer) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		p.created.Add(1)
		p.open.Add(1)
		return &trackedConn{Conn: conn, pool: p}, nil
	}
}

// trackedConn decrements the open-connection gauge exactly once on close.
type trackedConn struct {
	net.Conn
	pool *Pool
	once sync.Once
}

func (c *trackedConn) Close() error {
	c.once.Do(func() { c.pool.open.Add(-1) })
	return c.Conn.Close()
}

// countingRoundTripper tracks in-flight requests and connection reuse around
// the pooled transport.
type countingRoundTripper struct {
	pool *Pool
	next http.RoundTripper
}

func (rt *countingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.pool.active.Add(1)
	defer rt.pool.active.Add(-1)

	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				rt.pool.reused.Add(1)
			}
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	return rt.next.RoundTrip(req)
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	// Created counts connections dialed since the pool started.
	Created int64

	// Open is the number of currently established connections.
	Open int64

	// Active is the number of requests in flight.
	Active int64

	// Idle is the number of established connections not serving a request.
	Idle int64

	// Reused counts requests served on a previously used connection.
	Reused int64
}

// ReuseRate returns reused connections as a fraction of all connection
// acquisitions, or 0 before any request ran.
func (s Stats) ReuseRate() float64 {
	total := s.Created + s.Reused
	if total == 0 {
		return 0
	}
	return float64(s.Reused) / float64(total)
}

var _ http.RoundTripper = (*countingRoundTripper)(nil)

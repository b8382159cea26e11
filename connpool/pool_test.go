package connpool

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// doGet issues a GET and fully drains the body so the connection returns to
// the pool.
func doGet(t *testing.T, client *http.Client, url string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		t.Fatalf("read body failed: %v", err)
	}
}

func waitForOpen(t *testing.T, pool *Pool, want int64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if pool.Stats().Open == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Open = %d, want %d", pool.Stats().Open, want)
}

func TestPool_ReusesConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":[]}`)
	}))
	defer srv.Close()

	pool := New(DefaultConfig())
	defer pool.Close()

	// Sequential requests with drained bodies ride one connection.
	for i := 0; i < 5; i++ {
		doGet(t, pool.Client(), srv.URL)
	}

	stats := pool.Stats()
	if stats.Created != 1 {
		t.Errorf("Created = %d, want 1 (keep-alive reuse)", stats.Created)
	}
	if stats.Reused != 4 {
		t.Errorf("Reused = %d, want 4", stats.Reused)
	}
	if stats.Open != 1 {
		t.Errorf("Open = %d, want 1", stats.Open)
	}
	if stats.Active != 0 {
		t.Errorf("Active = %d, want 0 between requests", stats.Active)
	}
	if got, want := stats.ReuseRate(), 0.8; got != want {
		t.Errorf("ReuseRate = %v, want %v", got, want)
	}
}

func TestStats_ReuseRateEmpty(t *testing.T) {
	if got := (Stats{}).ReuseRate(); got != 0 {
		t.Errorf("ReuseRate on idle pool = %v, want 0", got)
	}
}

func TestPool_BoundsConnectionsPerHost(t *testing.T) {
	var cur, peak atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := cur.Add(1)
		defer cur.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	pool := New(Config{MaxConns: 2})
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := pool.Client().Get(srv.URL)
			if err != nil {
				t.Errorf("GET failed: %v", err)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()

	// With one request per HTTP/1.1 connection, handler concurrency equals
	// connection concurrency.
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrent requests = %d, want <= 2", got)
	}
	if got := pool.Stats().Created; got > 2 {
		t.Errorf("Created = %d, want <= 2 (excess requests queue, not dial)", got)
	}
}

func TestPool_IdleTimeoutClosesConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	pool := New(Config{IdleTimeout: 50 * time.Millisecond})
	defer pool.Close()

	doGet(t, pool.Client(), srv.URL)
	if got := pool.Stats().Open; got != 1 {
		t.Fatalf("Open = %d after request, want 1", got)
	}

	// The idle timer must close the connection without further traffic.
	waitForOpen(t, pool, 0)

	// The next request dials fresh.
	doGet(t, pool.Client(), srv.URL)
	if got := pool.Stats().Created; got != 2 {
		t.Errorf("Created = %d, want 2 after idle connection closed", got)
	}
}

func TestPool_CloseDropsIdleConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	pool := New(DefaultConfig())

	doGet(t, pool.Client(), srv.URL)
	pool.Close()
	waitForOpen(t, pool, 0)

	// The pool still works after Close; it just dials anew.
	doGet(t, pool.Client(), srv.URL)
	if got := pool.Stats().Created; got != 2 {
		t.Errorf("Created = %d, want 2 after Close", got)
	}
}

func TestPool_RequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") == "1" {
			time.Sleep(300 * time.Millisecond)
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	pool := New(Config{Timeout: 75 * time.Millisecond})
	defer pool.Close()

	if _, err := pool.Client().Get(srv.URL + "?slow=1"); err == nil {
		t.Error("slow request should exceed the client timeout")
	}

	// Fast requests are unaffected.
	doGet(t, pool.Client(), srv.URL)
}

func TestPool_ConcurrentRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	pool := New(DefaultConfig())
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := pool.Client().Get(srv.URL)
			if err != nil {
				t.Errorf("GET failed: %v", err)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()

	stats := pool.Stats()
	if stats.Active != 0 {
		t.Errorf("Active = %d after completion, want 0", stats.Active)
	}
	if stats.Created+stats.Reused < 50 {
		t.Errorf("Created+Reused = %d, want >= 50 (every request counted)", stats.Created+stats.Reused)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxConns != 50 {
		t.Errorf("MaxConns = %d, want 50", cfg.MaxConns)
	}
	if cfg.MaxIdle != 10 {
		t.Errorf("MaxIdle = %d, want 10", cfg.MaxIdle)
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("IdleTimeout = %v, want 30s", cfg.IdleTimeout)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.DialTimeout != 10*time.Second {
		t.Errorf("DialTimeout = %v, want 10s", cfg.DialTimeout)
	}
}

func TestConfig_WithDefaults_PartialOverride(t *testing.T) {
	cfg := Config{MaxConns: 5}.withDefaults()
	if cfg.MaxConns != 5 {
		t.Errorf("MaxConns = %d, want explicit 5 preserved", cfg.MaxConns)
	}
	if cfg.MaxIdle != 10 {
		t.Errorf("MaxIdle = %d, want default 10", cfg.MaxIdle)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want default 60s", cfg.Timeout)
	}
}

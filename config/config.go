package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/edgegate/auth"
	"github.com/jonwraymond/edgegate/cache"
	"github.com/jonwraymond/edgegate/connpool"
	"github.com/jonwraymond/edgegate/limits"
)

// File is a parsed gateway configuration.
//
// Zero values in the tuning blocks defer to each package's own defaults,
// so a file only needs to name what it changes.
type File struct {
	Upstream  Upstream   `yaml:"upstream"`
	Cache     Cache      `yaml:"cache"`
	Pool      Pool       `yaml:"pool"`
	Auth      Auth       `yaml:"auth"`
	Limits    Limits     `yaml:"limits"`
	Customers []Customer `yaml:"customers"`
}

// Upstream identifies the provider API the gateway fronts.
type Upstream struct {
	// BaseURL is the root of the provider's REST API.
	BaseURL string `yaml:"base_url"`

	// APIToken authenticates the gateway to the provider. Reference it
	// as ${VAR} so the token stays in the environment.
	APIToken string `yaml:"api_token"`
}

// Cache bounds the customer-scoped response cache.
type Cache struct {
	MaxEntries int      `yaml:"max_entries"`
	MaxMemory  int64    `yaml:"max_memory_bytes"`
	DefaultTTL Duration `yaml:"default_ttl"`
	MaxTTL     Duration `yaml:"max_ttl"`
}

// Pool tunes the shared upstream connection pool.
type Pool struct {
	MaxConns            int      `yaml:"max_conns"`
	MaxIdle             int      `yaml:"max_idle"`
	IdleTimeout         Duration `yaml:"idle_timeout"`
	Timeout             Duration `yaml:"timeout"`
	DialTimeout         Duration `yaml:"dial_timeout"`
	TLSHandshakeTimeout Duration `yaml:"tls_handshake_timeout"`
}

// Auth configures identity resolution.
type Auth struct {
	DefaultCustomer string   `yaml:"default_customer"`
	AllowList       []string `yaml:"allow_list"`
	CacheTTL        Duration `yaml:"cache_ttl"`
}

// Limits sets per-customer fairness budgets.
type Limits struct {
	Rate          float64 `yaml:"rate"`
	Burst         int     `yaml:"burst"`
	MaxConcurrent int     `yaml:"max_concurrent"`
}

// Customer is one tenant in the gateway's directory.
type Customer struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Elevated    bool           `yaml:"elevated"`
	Permissions []string       `yaml:"permissions"`
	Disabled    bool           `yaml:"disabled"`
	Metadata    map[string]any `yaml:"metadata"`
}

// Duration is a time.Duration that parses from Go duration strings
// ("250ms", "90s", "1h30m"). Bare numbers are rejected; units are
// required.
type Duration time.Duration

var _ yaml.Unmarshaler = (*Duration)(nil)

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Tag == "!!null" {
		*d = 0
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar value")
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads, expands, and parses the configuration at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return f, nil
}

// Parse expands and parses one YAML configuration document.
//
// The raw document is expanded against the process environment first, so
// ${VAR} references work in any field, numeric ones included. Unknown
// fields and additional YAML documents are rejected, and the result is
// validated before it is returned.
func Parse(data []byte) (*File, error) {
	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("configuration is empty")
		}
		return nil, err
	}
	var extra map[string]any
	if err := dec.Decode(&extra); err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, err
		}
	} else if len(extra) != 0 {
		return nil, errors.New("unexpected additional YAML document")
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the constraints the YAML schema cannot express.
func (f *File) Validate() error {
	if f.Upstream.BaseURL != "" {
		u, err := url.Parse(f.Upstream.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("upstream.base_url %q is not an absolute URL", f.Upstream.BaseURL)
		}
	}

	counts := []struct {
		name  string
		value int64
	}{
		{"cache.max_entries", int64(f.Cache.MaxEntries)},
		{"cache.max_memory_bytes", f.Cache.MaxMemory},
		{"pool.max_conns", int64(f.Pool.MaxConns)},
		{"pool.max_idle", int64(f.Pool.MaxIdle)},
		{"limits.burst", int64(f.Limits.Burst)},
		{"limits.max_concurrent", int64(f.Limits.MaxConcurrent)},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", c.name, c.value)
		}
	}
	if f.Limits.Rate < 0 {
		return fmt.Errorf("limits.rate must not be negative, got %g", f.Limits.Rate)
	}

	durations := []struct {
		name  string
		value Duration
	}{
		{"cache.default_ttl", f.Cache.DefaultTTL},
		{"cache.max_ttl", f.Cache.MaxTTL},
		{"pool.idle_timeout", f.Pool.IdleTimeout},
		{"pool.timeout", f.Pool.Timeout},
		{"pool.dial_timeout", f.Pool.DialTimeout},
		{"pool.tls_handshake_timeout", f.Pool.TLSHandshakeTimeout},
		{"auth.cache_ttl", f.Auth.CacheTTL},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative, got %s", d.name, time.Duration(d.value))
		}
	}
	if f.Cache.MaxTTL > 0 && f.Cache.DefaultTTL > f.Cache.MaxTTL {
		return fmt.Errorf("cache.default_ttl %s exceeds cache.max_ttl %s",
			time.Duration(f.Cache.DefaultTTL), time.Duration(f.Cache.MaxTTL))
	}

	if len(f.Customers) == 0 {
		return errors.New("at least one customer must be defined")
	}
	ids := make(map[string]struct{}, len(f.Customers))
	for i, c := range f.Customers {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return fmt.Errorf("customers[%d]: id is required", i)
		}
		// Customer IDs become cache key components; the key separator
		// and newlines are reserved.
		if strings.ContainsAny(id, "|\n") {
			return fmt.Errorf("customers[%d]: id %q contains reserved characters", i, id)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("customers[%d]: duplicate id %q", i, id)
		}
		ids[id] = struct{}{}
	}

	if dc := strings.TrimSpace(f.Auth.DefaultCustomer); dc != "" {
		if _, ok := ids[dc]; !ok {
			return fmt.Errorf("auth.default_customer %q is not a defined customer", dc)
		}
	}
	for i, id := range f.Auth.AllowList {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("auth.allow_list[%d]: id must not be blank", i)
		}
	}
	return nil
}

// CacheConfig returns the cache bounds. Zero values defer to the cache
// package's defaults.
func (f *File) CacheConfig() cache.Config {
	return cache.Config{
		MaxEntries: f.Cache.MaxEntries,
		MaxMemory:  f.Cache.MaxMemory,
		DefaultTTL: time.Duration(f.Cache.DefaultTTL),
		MaxTTL:     time.Duration(f.Cache.MaxTTL),
	}
}

// PoolConfig returns the connection pool tuning.
func (f *File) PoolConfig() connpool.Config {
	return connpool.Config{
		MaxConns:            f.Pool.MaxConns,
		MaxIdle:             f.Pool.MaxIdle,
		IdleTimeout:         time.Duration(f.Pool.IdleTimeout),
		Timeout:             time.Duration(f.Pool.Timeout),
		DialTimeout:         time.Duration(f.Pool.DialTimeout),
		TLSHandshakeTimeout: time.Duration(f.Pool.TLSHandshakeTimeout),
	}
}

// GuardConfig returns the identity guard configuration, backed by the
// file's customer directory.
func (f *File) GuardConfig() auth.GuardConfig {
	return auth.GuardConfig{
		Source:          f.Source(),
		AllowList:       append([]string(nil), f.Auth.AllowList...),
		DefaultCustomer: strings.TrimSpace(f.Auth.DefaultCustomer),
		CacheTTL:        time.Duration(f.Auth.CacheTTL),
	}
}

// LimitsConfig returns the per-customer budgets.
func (f *File) LimitsConfig() limits.Config {
	return limits.Config{
		Rate:          f.Limits.Rate,
		Burst:         f.Limits.Burst,
		MaxConcurrent: f.Limits.MaxConcurrent,
	}
}

// Source returns the file's customer directory as an identity source.
func (f *File) Source() auth.Source {
	customers := make([]*auth.CustomerConfig, 0, len(f.Customers))
	for _, c := range f.Customers {
		customers = append(customers, &auth.CustomerConfig{
			ID:          strings.TrimSpace(c.ID),
			Name:        c.Name,
			Elevated:    c.Elevated,
			Permissions: append([]string(nil), c.Permissions...),
			Disabled:    c.Disabled,
			Metadata:    c.Metadata,
		})
	}
	return auth.NewStaticSource(customers...)
}

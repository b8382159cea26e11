package auth

import (
	"context"
	"sync"
)

// CustomerConfig describes one customer known to the gateway.
type CustomerConfig struct {
	// ID is the unique customer identifier.
	ID string

	// Name is the customer's display name.
	Name string

	// Elevated grants access to operations that demand elevated access.
	Elevated bool

	// Permissions are the named capabilities granted to this customer.
	Permissions []string

	// Disabled marks a suspended customer. Disabled customers resolve but
	// are never permitted.
	Disabled bool

	// Metadata contains additional customer attributes.
	Metadata map[string]any
}

// Source resolves customer IDs to their configuration.
//
// Contract:
// - Unknown customers: Resolve returns (nil, nil); errors are reserved for
//   infrastructure failures (directory unreachable, bad data).
// - Concurrency: implementations must be safe for concurrent use.
type Source interface {
	// Resolve retrieves a customer's configuration by ID.
	Resolve(ctx context.Context, customerID string) (*CustomerConfig, error)
}

// SourceFunc adapts an ordinary function to the Source interface.
type SourceFunc func(ctx context.Context, customerID string) (*CustomerConfig, error)

// Resolve calls f.
func (f SourceFunc) Resolve(ctx context.Context, customerID string) (*CustomerConfig, error) {
	return f(ctx, customerID)
}

// StaticSource is an in-memory customer directory.
type StaticSource struct {
	mu        sync.RWMutex
	customers map[string]*CustomerConfig
}

// NewStaticSource creates a source pre-loaded with the given customers.
func NewStaticSource(customers ...*CustomerConfig) *StaticSource {
	s := &StaticSource{
		customers: make(map[string]*CustomerConfig, len(customers)),
	}
	for _, c := range customers {
		s.customers[c.ID] = c
	}
	return s
}

// Resolve retrieves a customer by ID. Returns (nil, nil) if not found.
func (s *StaticSource) Resolve(_ context.Context, customerID string) (*CustomerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customers[customerID], nil
}

// Add registers or replaces a customer.
func (s *StaticSource) Add(c *CustomerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// Remove drops a customer from the directory.
func (s *StaticSource) Remove(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, customerID)
}

// CompositeSource consults multiple sources in order.
// The first source that knows the customer wins.
type CompositeSource struct {
	// Sources is the ordered list of sources to try.
	Sources []Source
}

// NewCompositeSource creates a composite source.
func NewCompositeSource(sources ...Source) *CompositeSource {
	return &CompositeSource{Sources: sources}
}

// Resolve tries each source in sequence. Infrastructure errors propagate
// immediately; unknown customers fall through to the next source.
func (c *CompositeSource) Resolve(ctx context.Context, customerID string) (*CustomerConfig, error) {
	for _, src := range c.Sources {
		cfg, err := src.Resolve(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
	}
	return nil, nil
}

// Ensure implementations satisfy Source.
var (
	_ Source = SourceFunc(nil)
	_ Source = (*StaticSource)(nil)
	_ Source = (*CompositeSource)(nil)
)

package cache_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/edgegate/cache"
)

func ExampleNew() {
	c := cache.New[string](cache.DefaultConfig(), nil)
	ctx := context.Background()

	key, _ := cache.NewKey("cust_acme", "dns_records", "list_dns_records",
		map[string]any{"zone": "example.com"})

	// Store a result
	_ = c.Set(ctx, key, "three records", 5*time.Minute)

	// Retrieve it
	value, ok := c.Get(ctx, key)
	if ok {
		fmt.Println("Value:", value)
	}
	// Output:
	// Value: three records
}

func ExampleNewKey() {
	// Argument order never changes the key - maps are canonicalized.
	key1, _ := cache.NewKey("cust_acme", "dns_records", "list_dns_records",
		map[string]any{"type": "A", "zone": "example.com"})
	key2, _ := cache.NewKey("cust_acme", "dns_records", "list_dns_records",
		map[string]any{"zone": "example.com", "type": "A"})
	fmt.Println("Keys match:", key1 == key2)

	// The customer is part of the key, so tenants never share entries.
	key3, _ := cache.NewKey("cust_globex", "dns_records", "list_dns_records",
		map[string]any{"type": "A", "zone": "example.com"})
	fmt.Println("Different customer, different key:", key1 != key3)
	// Output:
	// Keys match: true
	// Different customer, different key: true
}

func ExampleCache_Set_noCustomer() {
	c := cache.New[string](cache.DefaultConfig(), nil)

	// Keys without a customer are rejected outright.
	err := c.Set(context.Background(), cache.Key{
		Namespace: "dns_records",
		Operation: "list_dns_records",
	}, "data", time.Minute)

	fmt.Println("Rejected:", errors.Is(err, cache.ErrKeyNoCustomer))
	// Output:
	// Rejected: true
}

func ExampleCache_DeleteNamespace() {
	c := cache.New[string](cache.DefaultConfig(), nil)
	ctx := context.Background()

	acme, _ := cache.NewKey("cust_acme", "dns_records", "list_dns_records", nil)
	globex, _ := cache.NewKey("cust_globex", "dns_records", "list_dns_records", nil)

	_ = c.Set(ctx, acme, "acme records", time.Hour)
	_ = c.Set(ctx, globex, "globex records", time.Hour)

	// A write by acme invalidates acme's namespace only.
	removed := c.DeleteNamespace(ctx, "cust_acme", "dns_records")
	fmt.Println("Removed:", removed)

	_, ok := c.Get(ctx, globex)
	fmt.Println("Other tenant untouched:", ok)
	// Output:
	// Removed: 1
	// Other tenant untouched: true
}

func ExampleConfig_EffectiveTTL() {
	cfg := cache.Config{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}

	// No override - uses default
	fmt.Println("No override:", cfg.EffectiveTTL(0))

	// Reasonable override - used as-is
	fmt.Println("10min override:", cfg.EffectiveTTL(10*time.Minute))

	// Excessive override - clamped to max
	fmt.Println("2hr override (clamped):", cfg.EffectiveTTL(2*time.Hour))
	// Output:
	// No override: 5m0s
	// 10min override: 10m0s
	// 2hr override (clamped): 1h0m0s
}

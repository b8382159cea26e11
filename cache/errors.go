package cache

import "errors"

// Package-level sentinel errors for cache operations.
var (
	// ErrKeyNoCustomer indicates a key is missing its customer component.
	// The cache never stores entries it cannot attribute to a tenant.
	ErrKeyNoCustomer = errors.New("cache: key has no customer")

	// ErrKeyInvalid indicates a key component is malformed.
	ErrKeyInvalid = errors.New("cache: invalid key")

	// ErrValueTooLarge indicates a single value exceeds the cache's memory
	// bound and can never be stored.
	ErrValueTooLarge = errors.New("cache: value exceeds memory bound")
)

// Package cache provides a bounded, customer-scoped store for upstream
// API results.
//
// Keys are structured values that always carry a customer component; the
// cache rejects writes without one, which is the tenant-isolation boundary
// of the gateway. Entries are evicted by a combined entry-count and
// estimated-memory bound (least recently used first) and expire lazily on
// read.
package cache

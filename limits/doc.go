// Package limits enforces per-customer rate and concurrency bounds.
//
// Each customer gets its own token bucket and in-flight slot pool, so one
// tenant saturating the gateway cannot starve the others. Rejections are
// immediate; callers that want queueing implement it above this layer.
package limits

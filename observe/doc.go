// Package observe provides call-level telemetry for the gateway:
// OpenTelemetry tracing and metrics plus a structured JSON logger, all
// bootstrapped from a single Config.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The pipeline wraps upstream fetches with the
// Middleware and records cache hits and coalesced joins itself, since those
// calls never reach an upstream handler.
package observe

// Package pipeline composes the gateway's layers into one call path.
//
// Every agent call passes through identity validation, per-customer limits,
// the customer-scoped cache and the request coalescer before an upstream
// handler runs on the shared connection pool. Reads are cached and collapsed;
// mutations bypass both and flush the namespaces they touch. The pipeline
// owns no policy of its own: operations declare what they need at
// registration and the pipeline enforces it per call.
package pipeline

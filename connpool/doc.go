// Package connpool provides a bounded keep-alive HTTP connection pool for
// upstream provider APIs.
//
// Per-call HTTP clients pay a TCP and TLS handshake on every request. The
// pool keeps connections open between calls and hands them to subsequent
// requests to the same host, with hard caps on how many connections may
// exist per host and how many idle ones are retained. Counters expose how
// often connections are reused versus dialed.
package connpool

// Package coalesce collapses concurrent identical requests into a single
// upstream execution.
//
// When several agents ask the same question at the same time, only one
// upstream call runs and every waiter receives its result. A waiter that
// gives up drops out of the flight without cancelling it: the producer runs
// on a context detached from any single caller's cancellation, so slow
// callers never fail fast ones.
package coalesce

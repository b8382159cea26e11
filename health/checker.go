package health

import (
	"context"
	"time"
)

// Status grades a component's ability to serve.
type Status int

const (
	// StatusHealthy means the component serves normally.
	StatusHealthy Status = iota

	// StatusDegraded means the component serves, but under pressure that
	// deserves attention. Readiness still reports up.
	StatusDegraded

	// StatusUnhealthy means the component cannot serve.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	// Status grades the component.
	Status Status

	// Message says why in one line.
	Message string

	// Details carries check-specific numbers for the detailed endpoint.
	Details map[string]any

	// Duration is how long the check took. The aggregator fills it in.
	Duration time.Duration

	// Timestamp is when the check ran.
	Timestamp time.Time

	// Error is the failure behind an unhealthy result, if any.
	Error error
}

// Healthy builds a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded builds a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy builds an unhealthy result around err.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails attaches check-specific numbers to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker reports one component's health.
//
// Contract:
// - Check must be safe for concurrent use and honor ctx cancellation;
//   the aggregator calls it in parallel with other checkers.
// - Check reports state, it never repairs: a checker must not mutate the
//   component it watches.
type Checker interface {
	// Name identifies the component in results and endpoints.
	Name() string

	// Check inspects the component.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc wraps fn as a named checker.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name identifies the component.
func (f *CheckerFunc) Name() string { return f.name }

// Check runs the wrapped function.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

var _ Checker = (*CheckerFunc)(nil)

package health

import "errors"

// Sentinel errors for check execution.
var (
	// ErrCheckFailed marks a check that ran and found its component broken.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout marks a check that did not answer within the
	// aggregator's deadline.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrCheckerNotFound is returned when a named checker is not registered.
	ErrCheckerNotFound = errors.New("health: checker not found")
)

package limits

import "errors"

// Sentinel errors for limit rejections.
var (
	// ErrRateLimited is returned when a customer's token bucket is empty.
	ErrRateLimited = errors.New("limits: rate limit exceeded")

	// ErrTooManyInFlight is returned when a customer is at its concurrency cap.
	ErrTooManyInFlight = errors.New("limits: too many calls in flight")
)

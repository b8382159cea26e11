package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for registration and dispatch.
var (
	// ErrUnknownOperation is returned when a request names an operation
	// that was never registered.
	ErrUnknownOperation = errors.New("pipeline: unknown operation")

	// ErrDuplicateOperation is returned when an operation name is
	// registered a second time.
	ErrDuplicateOperation = errors.New("pipeline: operation already registered")
)

// CallError carries the identity of a failed call alongside the failure
// itself. errors.Is and errors.As see through it to the underlying kind,
// so callers can still branch on auth, limit or cache sentinels.
type CallError struct {
	// Operation is the requested operation name.
	Operation string

	// Customer is the customer the call ran as. For failures before
	// identity resolution it is the customer the request asked for,
	// which may be empty.
	Customer string

	// CallID is the correlation ID assigned to this call.
	CallID string

	// Err is the underlying failure.
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("pipeline: operation %q for customer %q failed (call %s): %v",
		e.Operation, e.Customer, e.CallID, e.Err)
}

// Unwrap exposes the underlying failure to errors.Is and errors.As.
func (e *CallError) Unwrap() error { return e.Err }

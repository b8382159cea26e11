package auth

import "errors"

// Sentinel errors for identity validation and authorization.
var (
	// Identity errors
	ErrIdentityRequired  = errors.New("auth: customer identity required")
	ErrForbiddenCustomer = errors.New("auth: customer not permitted")

	// Authorization errors
	ErrElevatedRequired = errors.New("auth: elevated access required")
	ErrPermissionDenied = errors.New("auth: permission denied")
)

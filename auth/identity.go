package auth

import "time"

// Identity is a validated customer identity. Instances are shared between
// callers while cached; treat them as read-only.
type Identity struct {
	// CustomerID is the unique customer identifier (e.g. "cust_acme").
	CustomerID string

	// Name is the customer's display name.
	Name string

	// Elevated grants access to operations marked as requiring elevated
	// access, such as purges and bulk mutations.
	Elevated bool

	// Permissions are the named capabilities granted to this customer.
	Permissions []string

	// ResolvedAt is when this identity was resolved from its source.
	ResolvedAt time.Time
}

// HasPermission checks if the identity holds a specific permission.
func (id *Identity) HasPermission(perm string) bool {
	for _, p := range id.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

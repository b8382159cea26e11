// Package auth validates customer identities before operations execute.
//
// Identities arrive already authenticated; this package answers whether a
// customer is known, permitted on this gateway, and entitled to what an
// operation demands (elevated access, named permissions). Resolutions are
// cached briefly so hot paths do not hit the customer directory on every
// call. The package is protocol-agnostic and can be used with any transport
// layer.
package auth

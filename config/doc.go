// Package config loads gateway configuration from YAML.
//
// A configuration file carries the tenant directory (customers, their
// permissions and elevated-access capability) alongside the tuning blocks
// for the response cache, the upstream connection pool, identity
// resolution, and per-customer limits. The raw file is expanded against
// the process environment before parsing (see ExpandEnvStrict), so values
// such as upstream API tokens never need to live in the file itself.
package config

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key identifies a cached result. Every key carries the customer it belongs
// to; the cache refuses to store entries without one, so results for one
// customer can never be served to another.
type Key struct {
	// Customer is the tenant the entry belongs to. Required.
	Customer string

	// Namespace groups operations that share invalidation, typically the
	// upstream resource family ("dns_records", "cache_rules").
	Namespace string

	// Operation is the read being cached ("list_dns_records").
	Operation string

	// Fingerprint is a deterministic digest of the call arguments.
	Fingerprint string
}

// NewKey builds a key for the given call, fingerprinting args so that two
// calls with the same arguments map to the same entry regardless of map
// iteration order.
func NewKey(customer, namespace, operation string, args any) (Key, error) {
	k := Key{Customer: customer, Namespace: namespace, Operation: operation}
	if err := k.validate(); err != nil {
		return Key{}, err
	}
	fp, err := Fingerprint(args)
	if err != nil {
		return Key{}, err
	}
	k.Fingerprint = fp
	return k, nil
}

// String renders the key in its stored form:
// <customer>|<namespace>|<operation>|<fingerprint>.
func (k Key) String() string {
	return k.Customer + "|" + k.Namespace + "|" + k.Operation + "|" + k.Fingerprint
}

func (k Key) validate() error {
	if strings.TrimSpace(k.Customer) == "" {
		return ErrKeyNoCustomer
	}
	for _, part := range []string{k.Customer, k.Namespace, k.Operation} {
		if strings.ContainsAny(part, "|\n") {
			return fmt.Errorf("%w: component %q contains reserved characters", ErrKeyInvalid, part)
		}
	}
	if strings.TrimSpace(k.Operation) == "" {
		return fmt.Errorf("%w: operation is required", ErrKeyInvalid)
	}
	return nil
}

// Fingerprint produces a deterministic digest of args: the first 8 bytes of
// SHA-256 over a canonical JSON encoding, hex encoded.
func Fingerprint(args any) (string, error) {
	canonical, err := canonicalize(args)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize arguments: %w", err)
	}
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:8]), nil
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case json.RawMessage:
		// Round-trip raw JSON so equivalent documents with different key
		// order or whitespace fingerprint identically.
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return nil, err
		}
		return canonicalize(decoded)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

package cache

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewKey_Validation(t *testing.T) {
	tests := []struct {
		name      string
		customer  string
		namespace string
		operation string
		wantErr   error
	}{
		{
			name:      "valid key",
			customer:  "cust_acme",
			namespace: "dns_records",
			operation: "list_dns_records",
			wantErr:   nil,
		},
		{
			name:      "missing customer",
			customer:  "",
			namespace: "dns_records",
			operation: "list_dns_records",
			wantErr:   ErrKeyNoCustomer,
		},
		{
			name:      "blank customer",
			customer:  "   ",
			namespace: "dns_records",
			operation: "list_dns_records",
			wantErr:   ErrKeyNoCustomer,
		},
		{
			name:      "separator in customer",
			customer:  "cust|acme",
			namespace: "dns_records",
			operation: "list_dns_records",
			wantErr:   ErrKeyInvalid,
		},
		{
			name:      "newline in namespace",
			customer:  "cust_acme",
			namespace: "dns\nrecords",
			operation: "list_dns_records",
			wantErr:   ErrKeyInvalid,
		},
		{
			name:      "missing operation",
			customer:  "cust_acme",
			namespace: "dns_records",
			operation: "",
			wantErr:   ErrKeyInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewKey(tt.customer, tt.namespace, tt.operation, map[string]any{"zone": "example.com"})
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewKey failed: %v", err)
				}
				if key.Fingerprint == "" {
					t.Error("NewKey should populate Fingerprint")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewKey error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKey_String(t *testing.T) {
	key, err := NewKey("cust_acme", "dns_records", "list_dns_records", nil)
	if err != nil {
		t.Fatalf("NewKey failed: %v", err)
	}

	want := "cust_acme|dns_records|list_dns_records|" + key.Fingerprint
	if got := key.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	// Maps with the same contents must fingerprint identically regardless
	// of construction order.
	a := map[string]any{"zone": "example.com", "type": "A", "page": 1}
	b := map[string]any{"page": 1, "type": "A", "zone": "example.com"}

	fpA, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	fpB, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fpA != fpB {
		t.Errorf("equivalent maps fingerprint differently: %q vs %q", fpA, fpB)
	}

	// Different arguments must not collide.
	c := map[string]any{"zone": "example.org", "type": "A", "page": 1}
	fpC, err := Fingerprint(c)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fpA == fpC {
		t.Error("different arguments produced the same fingerprint")
	}
}

func TestFingerprint_NestedAndRaw(t *testing.T) {
	nested1 := map[string]any{
		"filter": map[string]any{"type": "A", "name": "www"},
		"zones":  []any{"a.com", "b.com"},
	}
	nested2 := map[string]any{
		"zones":  []any{"a.com", "b.com"},
		"filter": map[string]any{"name": "www", "type": "A"},
	}

	fp1, err := Fingerprint(nested1)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	fp2, err := Fingerprint(nested2)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fp1 != fp2 {
		t.Errorf("equivalent nested maps fingerprint differently: %q vs %q", fp1, fp2)
	}

	// Raw JSON documents that differ only in key order and whitespace must
	// fingerprint identically.
	raw1 := json.RawMessage(`{"zone":"example.com","type":"A"}`)
	raw2 := json.RawMessage(`{ "type": "A", "zone": "example.com" }`)

	fpR1, err := Fingerprint(raw1)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	fpR2, err := Fingerprint(raw2)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fpR1 != fpR2 {
		t.Errorf("equivalent raw JSON fingerprints differ: %q vs %q", fpR1, fpR2)
	}
}

func TestFingerprint_NilArguments(t *testing.T) {
	fp1, err := Fingerprint(nil)
	if err != nil {
		t.Fatalf("Fingerprint(nil) failed: %v", err)
	}
	fp2, err := Fingerprint(nil)
	if err != nil {
		t.Fatalf("Fingerprint(nil) failed: %v", err)
	}
	if fp1 != fp2 {
		t.Error("Fingerprint(nil) is not stable")
	}
	if len(fp1) != 16 {
		t.Errorf("fingerprint length = %d, want 16 hex chars", len(fp1))
	}
}

func TestFingerprint_Unencodable(t *testing.T) {
	// Channels cannot be JSON encoded; the error must surface so callers
	// can fall back to an uncached execution.
	if _, err := Fingerprint(map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("Fingerprint should fail for unencodable arguments")
	}
}

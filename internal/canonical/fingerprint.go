package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for changing the algorithm.
const (
	DomainFilter = "cyfilter/filter/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The separator
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies a filter input on an entity. It is stable across
// processes and restarts given the same entity name and an equal input.
func Fingerprint(entity string, raw map[string]any) (string, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	data, err := Marshal(map[string]any{
		"entity": entity,
		"filter": raw,
	})
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFilter, data), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(entity string, raw map[string]any) string {
	fp, err := Fingerprint(entity, raw)
	if err != nil {
		panic(err)
	}
	return fp
}

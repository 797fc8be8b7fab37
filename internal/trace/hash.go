package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainTrace prefixes trace fingerprints. The version suffix enables a
// future algorithm migration without fingerprint collisions.
const DomainTrace = "qrep/trace/v1"

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte prevents boundary ambiguity
// between the domain and the payload.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a gate trace.
// Two runs with identical gate sequences (ops, operands, angles, results, in
// order) fingerprint identically; this is what the replay determinism check
// compares.
func Fingerprint(events []Event) (string, error) {
	canonical, err := MarshalCanonical(events)
	if err != nil {
		return "", fmt.Errorf("fingerprint trace: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

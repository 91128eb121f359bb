// Package auth provides timing-safe verification of caller credentials.
package auth

import "crypto/subtle"

// Verifier checks presented caller credentials against the configured
// expected credential. The comparison runs in constant time over the full
// length of both inputs, so execution time does not depend on where the
// first mismatching byte sits. Length inequality contributes at most an
// O(1) timing signal.
//
// A Verifier is immutable and safe for concurrent use. It never logs
// either credential.
type Verifier struct {
	expected []byte
}

// NewVerifier creates a verifier for the expected credential. The expected
// value is loaded once at process start and passed in here; the verifier
// never reads ambient state.
func NewVerifier(expected string) *Verifier {
	return &Verifier{expected: []byte(expected)}
}

// Verify reports whether the presented credential matches the expected one.
// An empty presented or expected credential is a non-match, never a fault.
func (v *Verifier) Verify(presented string) bool {
	if len(v.expected) == 0 || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), v.expected) == 1
}

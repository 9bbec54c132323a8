// Package id generates identifiers for dashboard sessions.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SessionPrefix marks dashboard session identifiers.
const SessionPrefix = "sess"

// Generate creates a prefixed NanoID, e.g. "sess-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system has no entropy to offer.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewSession returns a fresh session identifier.
func NewSession() (string, error) {
	return Generate(SessionPrefix)
}

// HasPrefix reports whether id was produced by Generate with prefix.
func HasPrefix(id, prefix string) bool {
	n := len(prefix)
	return len(id) > n+1 && id[:n] == prefix && id[n] == '-'
}

// Package uuid issues the identifiers used for rows and tokenization
// operations.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7. Time ordering keeps primary-key inserts append-only
// and lets operation ids be sorted by start time.
func New() string {
	if id, err := googleuuid.NewV7(); err == nil {
		return id.String()
	}
	// v7 needs the clock and crypto/rand; v4 only needs the latter.
	return googleuuid.NewString()
}

// Parse accepts any textual UUID form and returns the canonical
// lower-case hyphenated one.
func Parse(s string) (string, error) {
	id, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Package ids generates and checks entity identifiers.
//
// Identifiers are random 128-bit UUIDs (version 4) rendered as lowercase hex
// groups separated by hyphens.
package ids

import (
	"regexp"

	"github.com/google/uuid"
)

// shape matches a version 4, RFC 4122 variant UUID in canonical form.
var shape = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// Generator produces new identifiers. The store and import engine take a
// Generator so tests can supply deterministic sequences.
type Generator interface {
	NewID() string
}

// Random is the default Generator.
type Random struct{}

// NewID returns a new random UUID v4.
func (Random) NewID() string {
	return uuid.NewString()
}

// New returns a new random identifier.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s has the identifier shape.
func Valid(s string) bool {
	return shape.MatchString(s)
}

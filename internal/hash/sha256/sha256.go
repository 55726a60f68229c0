// Package sha256 provides the content digest used as a staleness witness.
package sha256

import (
	"crypto/sha256"
	"encoding/base64"
)

// Hasher implements index.Hasher using SHA-256 with a base64 digest.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash digests the text and returns the standard base64 encoding.
func (h *Hasher) Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return base64.StdEncoding.EncodeToString(sum[:])
}

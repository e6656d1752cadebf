// Package fingerprint derives the cache and idempotency key for a
// generation request from the exact source text and the requested count.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Fingerprint identifies a (text, task count) pair.
type Fingerprint string

// String implements fmt.Stringer.
func (f Fingerprint) String() string { return string(f) }

// TextHash returns the hex SHA-256 digest of text. No normalization is
// applied: every byte of the text affects the result.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Of returns the fingerprint for text requested at count tasks, formed as
// TextHash(text) + "_" + count.
func Of(text string, count int) Fingerprint {
	return Fingerprint(TextHash(text) + "_" + strconv.Itoa(count))
}

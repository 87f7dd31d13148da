package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a filesystem-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ShortHash truncates a hex digest for log fields and display, keeping enough
// prefix to stay distinguishable in practice.
func ShortHash(hexDigest string) string {
	const n = 12
	if len(hexDigest) <= n {
		return hexDigest
	}
	return hexDigest[:n]
}

// Package sha256 fingerprints output artifacts so consecutive runs can be
// compared without diffing the files.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

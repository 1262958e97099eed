package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
)

// HashSHA256 computes the SHA256 hash of data and returns it hex-encoded
// (64 characters). Used for both chunk-level and whole-object integrity
// verification.
func HashSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewSHA256 returns a streaming SHA256 hasher for whole-object verification
// during assembly.
func NewSHA256() hash.Hash {
	return sha256.New()
}

// HexDigest finalizes a streaming hasher into a hex string.
func HexDigest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// SecureCompare performs constant-time string comparison.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

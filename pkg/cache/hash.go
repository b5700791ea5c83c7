package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 of data. Used to derive cache
// ids for values that have no natural content hash, such as file paths
// combined with a commit.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash returns the first 16 hex characters of Hash. Enough to key
// per-commit file entries without producing unwieldy filenames.
func ShortHash(data []byte) string {
	return Hash(data)[:16]
}

package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data. The manifest
// schema names this value content_sha256 and the resume invariants compare
// it for equality, so a single fixed algorithm is required here rather
// than the pluggable HashAlgo the teacher repo offers for Markdown assets.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

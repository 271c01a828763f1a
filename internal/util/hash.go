package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentDigest returns a short fingerprint of a note's name and content
func ContentDigest(name, content string) string {
	hasher := sha256.New()
	hasher.Write([]byte(name))
	hasher.Write([]byte{0})
	hasher.Write([]byte(content))
	return hex.EncodeToString(hasher.Sum(nil))[:16] // Use first 16 chars of the hash
}

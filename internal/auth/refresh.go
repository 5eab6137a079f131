package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewRefreshToken returns an opaque token for the client and the hash that
// gets stored.
func NewRefreshToken() (plain, hash string) {
	plain = uuid.NewString()
	return plain, HashToken(plain)
}

func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

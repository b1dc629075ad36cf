package invitation

import (
	"crypto/rand"
	"encoding/hex"
)

// tokenBytes gives 256 bits of entropy, treated as equivalent in strength
// to a session secret.
const tokenBytes = 32

// TokenGenerator produces invitation bearer tokens.
type TokenGenerator func() (string, error)

// NewToken creates a cryptographically secure random token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

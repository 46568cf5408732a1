package checkin

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenBytes = 32

// NewTokenValue returns a fresh opaque token value. 32 random bytes keep
// the value unguessable within any realistic TTL.
func NewTokenValue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

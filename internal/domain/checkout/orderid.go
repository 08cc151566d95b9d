package checkout

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// orderIDLength is the number of hex characters in a generated order id.
// 12 chars = 48 bits: unique with overwhelming probability but not
// guaranteed. The orchestrator detects collisions via the store's unique
// index and retries with a fresh id.
const orderIDLength = 12

// NewOrderID produces a short opaque order identifier: 16 cryptographically
// random bytes, SHA-256 hashed, truncated to 12 hex characters.
func NewOrderID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.Wrap(err, "read random source")
	}
	sum := sha256.Sum256(buf[:])
	return hex.EncodeToString(sum[:])[:orderIDLength], nil
}

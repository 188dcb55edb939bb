package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a prefixed random identifier, e.g. "itm_3f9c...".
// Prefixes keep temporary and persisted ids distinguishable at a glance.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewToken returns a client-generated idempotency token. Inserts carry
// it to the store and the change feed echoes it back, which is how an
// optimistic row is correlated with its confirmed counterpart.
func NewToken() string {
	return uuid.NewString()
}

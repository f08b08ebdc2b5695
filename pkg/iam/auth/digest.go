package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digester computes the keyed hash under which refresh tokens are stored.
// The digest is deterministic so the store can look a token up by it; the
// salt keeps a leaked table from being matched against captured tokens.
type Digester struct {
	salt string
}

// NewDigester creates a digester keyed with the given salt.
func NewDigester(salt string) *Digester {
	return &Digester{salt: salt}
}

// Digest returns the hex-encoded SHA-256 of salt||token.
func (d *Digester) Digest(token string) string {
	sum := sha256.Sum256([]byte(d.salt + token))
	return hex.EncodeToString(sum[:])
}

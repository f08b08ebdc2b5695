package session

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// RefreshSession is the server-side anchor of one issued refresh token.
// Only the keyed digest of the raw token is stored; the access tokens minted
// against the session stay stateless and are revoked by revoking the row.
type RefreshSession struct {
	ID          kernel.SessionID `db:"id" json:"id"`
	UserID      kernel.UserID    `db:"user_id" json:"user_id"`
	TokenDigest string           `db:"token_digest" json:"-"`
	IssuedAt    time.Time        `db:"issued_at" json:"issued_at"`
	ExpiresAt   time.Time        `db:"expires_at" json:"expires_at"`
	Revoked     bool             `db:"revoked" json:"revoked"`
}

// IsExpired reports whether the session's lifetime has elapsed.
func (s *RefreshSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Usable reports whether the session may anchor a rotation or an access
// token: not revoked and not expired.
func (s *RefreshSession) Usable(now time.Time) bool {
	return !s.Revoked && !s.IsExpired(now)
}

// Remaining returns how much life the session has left.
func (s *RefreshSession) Remaining(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("SESSION")

var (
	CodeNotFound = ErrRegistry.Register("NOT_FOUND", errx.KindNotFound, http.StatusUnauthorized, "Valid refresh token not found")
	CodeRevoked  = ErrRegistry.Register("REVOKED", errx.KindRevoked, http.StatusUnauthorized, "Token revoked")
)

func ErrNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }
func ErrRevoked() *errx.Error  { return ErrRegistry.New(CodeRevoked) }

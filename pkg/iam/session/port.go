package session

import (
	"context"

	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// Repository is the persistence contract for refresh sessions. Revocation is
// conditional on row state so that two concurrent rotations of the same token
// can never both succeed.
type Repository interface {
	Create(ctx context.Context, s RefreshSession) error
	FindByID(ctx context.Context, id kernel.SessionID) (*RefreshSession, error)
	FindByDigest(ctx context.Context, digest string) (*RefreshSession, error)

	// Revoke marks the session revoked iff it is not already. It returns
	// ErrRevoked when the conditional update affects no row, meaning a
	// concurrent caller won the race.
	Revoke(ctx context.Context, id kernel.SessionID) error

	// Reinstate undoes a revocation. Compensation path for a rotation that
	// revoked the old session but could not mint its replacement.
	Reinstate(ctx context.Context, id kernel.SessionID) error

	// RevokeAllForUser marks every session of the user revoked.
	RevokeAllForUser(ctx context.Context, userID kernel.UserID) error

	// DeleteExpired removes rows whose expiry has long passed. Housekeeping
	// only; expired rows are already unusable.
	DeleteExpired(ctx context.Context) (int64, error)
}

package otp

import (
	"context"

	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// Repository is the persistence contract for OTP challenges.
type Repository interface {
	Create(ctx context.Context, c Challenge) error

	// FindOutstanding returns the single unexpired, unused challenge for
	// the user, or ErrNotFound.
	FindOutstanding(ctx context.Context, userID kernel.UserID) (*Challenge, error)

	// CountOutstanding counts unexpired, unused challenges for the user.
	CountOutstanding(ctx context.Context, userID kernel.UserID) (int, error)

	// MarkUsed consumes a challenge. A consumed challenge can never be
	// verified against again.
	MarkUsed(ctx context.Context, id kernel.ChallengeID) error

	// DeleteExpired removes stale rows. Housekeeping only.
	DeleteExpired(ctx context.Context) (int64, error)
}

// Hasher hashes codes at rest and verifies candidates in constant time.
type Hasher interface {
	Hash(code string) (string, error)
	Verify(candidate, hash string) bool
}

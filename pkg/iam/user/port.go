package user

import (
	"context"

	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// Repository is the persistence contract for users and their credentials.
type Repository interface {
	// CreateWithCredential inserts the user and its credential row in one
	// transaction; nothing is committed when either insert fails.
	CreateWithCredential(ctx context.Context, u User, passwordHash string) (*User, error)

	// Find resolves a user by the tagged lookup.
	Find(ctx context.Context, lookup Lookup) (*User, error)

	// Update applies a profile update and returns the fresh row.
	Update(ctx context.Context, id kernel.UserID, upd Update) (*User, error)

	// MarkVerified flips the verification flag. Called exactly once per
	// user, on the first successful OTP verification.
	MarkVerified(ctx context.Context, id kernel.UserID) error

	// FindCredential returns the credential row for a user.
	FindCredential(ctx context.Context, id kernel.UserID) (*Credential, error)

	// UpdatePasswordHash replaces the stored hash; the previous one is
	// discarded.
	UpdatePasswordHash(ctx context.Context, id kernel.UserID, hash string) error
}

// PasswordHasher is the one-way, salted, slow hash primitive.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify compares in constant time and reports the match.
	Verify(plain, hash string) bool
}

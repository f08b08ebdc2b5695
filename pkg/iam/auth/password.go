package auth

import (
	"github.com/Abraxas-365/perimeter/pkg/errx"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher is the slow-hash primitive for passwords and OTP codes at
// rest. It satisfies both user.PasswordHasher and otp.Hasher.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher. Zero cost falls back to bcrypt's default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", errx.Wrap(err, "failed to hash secret", errx.KindInternal)
	}
	return string(hashed), nil
}

// Verify compares plain against hash in constant time.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

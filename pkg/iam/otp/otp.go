package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// Challenge is one outstanding one-time passcode. At most one unexpired,
// unused challenge may exist per user at any time; the first verification
// attempt consumes it whether or not the supplied code matched.
type Challenge struct {
	ID        kernel.ChallengeID `db:"id" json:"id"`
	UserID    kernel.UserID      `db:"user_id" json:"user_id"`
	CodeHash  string             `db:"code_hash" json:"-"`
	Used      bool               `db:"used" json:"used"`
	ExpiresAt time.Time          `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}

// IsExpired reports whether the challenge's lifetime has elapsed.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Outstanding reports whether the challenge still blocks issuing a new one.
func (c *Challenge) Outstanding(now time.Time) bool {
	return !c.Used && !c.IsExpired(now)
}

// GenerateCode generates a fixed-length decimal code, zero-padded.
func GenerateCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("OTP")

var (
	CodeNotFound    = ErrRegistry.Register("NOT_FOUND", errx.KindNotFound, http.StatusNotFound, "No valid OTP found")
	CodeOutstanding = ErrRegistry.Register("OUTSTANDING", errx.KindConflict, http.StatusConflict, "An OTP is already outstanding for this user")
	CodeMismatch    = ErrRegistry.Register("MISMATCH", errx.KindInvalid, http.StatusBadRequest, "OTP is invalid")
)

func ErrNotFound() *errx.Error    { return ErrRegistry.New(CodeNotFound) }
func ErrOutstanding() *errx.Error { return ErrRegistry.New(CodeOutstanding) }
func ErrMismatch() *errx.Error    { return ErrRegistry.New(CodeMismatch) }

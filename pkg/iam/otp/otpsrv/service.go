package otpsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/iam/otp"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
)

// Service is the OTP verification engine: short-lived, single-use decimal
// codes gating registration confirmation and password reset.
type Service struct {
	repo   otp.Repository
	hasher otp.Hasher
	length int
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates the engine. Zero values fall back to 8 digits / 10m.
func NewService(repo otp.Repository, hasher otp.Hasher, length int, ttl time.Duration) *Service {
	if length == 0 {
		length = 8
	}
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		repo:   repo,
		hasher: hasher,
		length: length,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a challenge for the user and returns the plaintext code for
// out-of-band delivery. At most one unexpired, unused challenge may exist per
// user; a second issue while one is outstanding fails with Conflict.
func (s *Service) Issue(ctx context.Context, userID kernel.UserID) (string, error) {
	outstanding, err := s.repo.CountOutstanding(ctx, userID)
	if err != nil {
		return "", err
	}
	if outstanding > 0 {
		return "", otp.ErrOutstanding()
	}

	code, err := otp.GenerateCode(s.length)
	if err != nil {
		return "", errx.Wrap(err, "failed to generate OTP code", errx.KindInternal)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", err
	}

	now := s.now()
	challenge := otp.Challenge{
		ID:        kernel.NewChallengeID(),
		UserID:    userID,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, challenge); err != nil {
		return "", err
	}
	return code, nil
}

// Verify redeems the user's outstanding challenge against a candidate code.
// The challenge is consumed on the first attempt regardless of the outcome,
// so a mismatch cannot be retried against the same code. Returns whether the
// candidate matched.
func (s *Service) Verify(ctx context.Context, userID kernel.UserID, candidate string) (bool, error) {
	challenge, err := s.repo.FindOutstanding(ctx, userID)
	if err != nil {
		return false, err
	}

	if err := s.repo.MarkUsed(ctx, challenge.ID); err != nil {
		return false, err
	}

	return s.hasher.Verify(candidate, challenge.CodeHash), nil
}

package usersrv

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/perimeter/pkg/iam/otp"
	"github.com/Abraxas-365/perimeter/pkg/iam/session/sessionsrv"
	"github.com/Abraxas-365/perimeter/pkg/iam/user"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/Abraxas-365/perimeter/pkg/logx"
)

// OTPEngine is the slice of the OTP service this module consumes.
type OTPEngine interface {
	Issue(ctx context.Context, userID kernel.UserID) (string, error)
	Verify(ctx context.Context, userID kernel.UserID, candidate string) (bool, error)
}

// SessionEngine is the slice of the token lifecycle engine this module
// consumes.
type SessionEngine interface {
	Issue(ctx context.Context, u *user.User) (*sessionsrv.TokenPair, error)
	RevokeAll(ctx context.Context, userID kernel.UserID) error
}

// Notifier hands an email-like message to the outbound queue. Dispatch is
// fire-and-forget: requests never block on, nor fail because of, delivery.
type Notifier interface {
	EnqueueEmail(ctx context.Context, to, subject, body string)
}

// Service implements registration, OTP-gated verification, login and
// password management on top of the engines.
type Service struct {
	users    user.Repository
	hasher   user.PasswordHasher
	otps     OTPEngine
	sessions SessionEngine
	notifier Notifier
}

// NewService wires the user service.
func NewService(
	users user.Repository,
	hasher user.PasswordHasher,
	otps OTPEngine,
	sessions SessionEngine,
	notifier Notifier,
) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		otps:     otps,
		sessions: sessions,
		notifier: notifier,
	}
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Bio        string `json:"bio"`
	Age        *int   `json:"age"`
	Profession string `json:"profession"`
	Password   string `json:"password"`
}

// Register creates the user and its credential in one transaction, then
// issues the first verification OTP and queues its delivery. A failure past
// the commit point does not undo registration: the user can always request a
// fresh code through SendOTP.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	if err := user.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.users.CreateWithCredential(ctx, user.User{
		ID:         kernel.NewUserID(),
		Email:      in.Email,
		Username:   in.Username,
		FullName:   in.FullName,
		Bio:        in.Bio,
		Age:        in.Age,
		Profession: in.Profession,
		IsActive:   true,
	}, hash)
	if err != nil {
		return nil, err
	}

	code, err := s.otps.Issue(ctx, created.ID)
	if err != nil {
		logx.WithError(err).WithField("user_id", created.ID).
			Warn("registration OTP issue failed; user can request one via send_otp")
		return created, nil
	}
	s.notifier.EnqueueEmail(ctx, created.Email, "Verify your email", otpBody(code))

	return created, nil
}

// SendOTP issues a fresh challenge for the user and queues its delivery.
// Fails with Conflict while a previous challenge is still outstanding.
func (s *Service) SendOTP(ctx context.Context, lookup user.Lookup) error {
	u, err := s.users.Find(ctx, lookup)
	if err != nil {
		return err
	}
	code, err := s.otps.Issue(ctx, u.ID)
	if err != nil {
		return err
	}
	s.notifier.EnqueueEmail(ctx, u.Email, "Verify your email", otpBody(code))
	return nil
}

// VerifyOTP redeems the user's outstanding challenge. On match the user is
// marked verified; on mismatch the challenge is already consumed and the
// caller must request a new one.
func (s *Service) VerifyOTP(ctx context.Context, lookup user.Lookup, code string) (*user.User, error) {
	u, err := s.users.Find(ctx, lookup)
	if err != nil {
		return nil, err
	}
	match, err := s.otps.Verify(ctx, u.ID, code)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, otp.ErrMismatch()
	}
	if !u.IsVerified {
		if err := s.users.MarkVerified(ctx, u.ID); err != nil {
			return nil, err
		}
		u.IsVerified = true
	}
	return u, nil
}

// Login authenticates by password and mints a token pair. Unverified users
// cannot log in.
func (s *Service) Login(ctx context.Context, lookup user.Lookup, password string) (*sessionsrv.TokenPair, error) {
	u, err := s.users.Find(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if !u.IsVerified {
		return nil, user.ErrNotVerified()
	}
	if err := s.verifyPassword(ctx, u.ID, password); err != nil {
		return nil, err
	}
	return s.sessions.Issue(ctx, u)
}

// ChangePassword rotates the credential after checking the old password,
// then logs the user out everywhere: every refresh session is revoked and
// with them every outstanding access token.
func (s *Service) ChangePassword(ctx context.Context, userID kernel.UserID, oldPassword, newPassword string) error {
	if err := s.verifyPassword(ctx, userID, oldPassword); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, newPassword)
}

// ResetPasswordOTP rotates the credential after a successful OTP
// verification, for users locked out of their password.
func (s *Service) ResetPasswordOTP(ctx context.Context, lookup user.Lookup, code, newPassword string) error {
	u, err := s.VerifyOTP(ctx, lookup, code)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, u.ID, newPassword)
}

// Get resolves a user by the tagged lookup.
func (s *Service) Get(ctx context.Context, lookup user.Lookup) (*user.User, error) {
	return s.users.Find(ctx, lookup)
}

// UpdateProfile applies a partial profile update.
func (s *Service) UpdateProfile(ctx context.Context, userID kernel.UserID, upd user.Update) (*user.User, error) {
	if upd.IsEmpty() {
		return nil, user.ErrRegistry.New(user.CodeEmptyUpdate)
	}
	return s.users.Update(ctx, userID, upd)
}

func (s *Service) verifyPassword(ctx context.Context, userID kernel.UserID, password string) error {
	cred, err := s.users.FindCredential(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, cred.PasswordHash) {
		return user.ErrBadCredentials()
	}
	return nil
}

func (s *Service) setPassword(ctx context.Context, userID kernel.UserID, newPassword string) error {
	if err := user.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	// Logout everywhere. A stolen refresh token dies with the old password.
	return s.sessions.RevokeAll(ctx, userID)
}

func otpBody(code string) string {
	return fmt.Sprintf("One time password: %s", code)
}

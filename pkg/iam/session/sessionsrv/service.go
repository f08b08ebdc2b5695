package sessionsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/iam/auth"
	"github.com/Abraxas-365/perimeter/pkg/iam/session"
	"github.com/Abraxas-365/perimeter/pkg/iam/user"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/Abraxas-365/perimeter/pkg/logx"
	"github.com/google/uuid"
)

// TokenPair is one issued (access, refresh) credential pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service is the token lifecycle and revocation engine. Access tokens stay
// self-verifying; authorization additionally requires the liveness of the
// refresh session the token references, which is what makes revocation
// effective before the token's own expiry.
type Service struct {
	sessions   session.Repository
	users      user.Repository
	codec      *auth.Codec
	digester   *auth.Digester
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService creates the engine. Zero TTLs fall back to 24h access / 7d
// refresh.
func NewService(
	sessions session.Repository,
	users user.Repository,
	codec *auth.Codec,
	digester *auth.Digester,
	accessTTL, refreshTTL time.Duration,
) *Service {
	if accessTTL == 0 {
		accessTTL = 24 * time.Hour
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		sessions:   sessions,
		users:      users,
		codec:      codec,
		digester:   digester,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue mints a fresh token pair for the user: a new refresh session row
// (only the keyed digest of the raw refresh token is persisted) and an access
// token bound to that session. The access expiry never exceeds the remaining
// life of its session.
func (s *Service) Issue(ctx context.Context, u *user.User) (*TokenPair, error) {
	now := s.now()
	sessionID := kernel.NewSessionID()
	expiresAt := now.Add(s.refreshTTL)

	refreshToken, err := s.codec.EncodeRefresh(u.Username, u.Email, u.ID, uuid.NewString(), s.refreshTTL)
	if err != nil {
		return nil, err
	}

	row := session.RefreshSession{
		ID:          sessionID,
		UserID:      u.ID,
		TokenDigest: s.digester.Digest(refreshToken),
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}
	if err := s.sessions.Create(ctx, row); err != nil {
		return nil, err
	}

	accessTTL := s.accessTTL
	if remaining := row.Remaining(now); accessTTL > remaining {
		accessTTL = remaining
	}
	accessToken, err := s.codec.EncodeAccess(u.Username, u.Email, u.ID, sessionID, accessTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Rotate redeems a raw refresh token for a brand-new pair. Each refresh
// token is valid for exactly one rotation: the matched session is revoked
// with a conditional update before the new pair is minted, so a concurrent
// rotation of the same token loses and fails with Revoked. When minting the
// replacement fails, the revocation is compensated so the caller is not left
// with a dead token and no successor.
func (s *Service) Rotate(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	row, err := s.lookup(ctx, rawRefresh)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Find(ctx, user.ByID(row.UserID))
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Revoke(ctx, row.ID); err != nil {
		return nil, err
	}

	pair, err := s.Issue(ctx, u)
	if err != nil {
		// Bring the old session back so the token can be redeemed again.
		// If even that fails the session stays dead, which fails closed.
		if rerr := s.sessions.Reinstate(ctx, row.ID); rerr != nil {
			logx.WithError(rerr).WithField("session_id", row.ID).
				Warn("session: reinstate after failed rotation")
		}
		return nil, err
	}
	return pair, nil
}

// Resolve decodes an access token and checks the liveness of its refresh
// session. Both checks must pass: a valid signature over a revoked session
// is Revoked, a broken or stale signature is Invalid/Expired.
func (s *Service) Resolve(ctx context.Context, rawAccess string) (kernel.UserID, error) {
	claims, err := s.codec.DecodeAccess(rawAccess)
	if err != nil {
		return "", err
	}

	row, err := s.sessions.FindByID(ctx, kernel.SessionID(claims.SessionID))
	if err != nil {
		if errx.IsKind(err, errx.KindNotFound) {
			return "", session.ErrRevoked()
		}
		return "", err
	}
	if !row.Usable(s.now()) {
		return "", session.ErrRevoked()
	}
	return kernel.UserID(claims.UserID), nil
}

// Revoke marks the session of a raw refresh token dead (logout of one
// session). Every access token minted against it dies with it.
func (s *Service) Revoke(ctx context.Context, rawRefresh string) error {
	row, err := s.lookup(ctx, rawRefresh)
	if err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, row.ID)
}

// RevokeAll marks every session of the user dead (logout everywhere).
// Callers invoke it after any password change.
func (s *Service) RevokeAll(ctx context.Context, userID kernel.UserID) error {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

func (s *Service) lookup(ctx context.Context, rawRefresh string) (*session.RefreshSession, error) {
	row, err := s.sessions.FindByDigest(ctx, s.digester.Digest(rawRefresh))
	if err != nil {
		return nil, err
	}
	if !row.Usable(s.now()) {
		return nil, session.ErrRevoked()
	}
	return row, nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/iam"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token. The token is self-verifying
// for authenticity; SessionID points at the refresh session whose liveness
// decides whether the token is still authorized.
type AccessClaims struct {
	Email     string `json:"email"`
	UserID    string `json:"user_id"`
	SessionID string `json:"refresh_session_id"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. Anchor is a random value
// so that two otherwise identical tokens never collide, digest included.
type RefreshClaims struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
	Anchor string `json:"anchor"`
	jwt.RegisteredClaims
}

// Codec signs and verifies both token flavors with HS256.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec creates a token codec.
func NewCodec(secret, issuer string) *Codec {
	if issuer == "" {
		issuer = "perimeter"
	}
	return &Codec{secret: []byte(secret), issuer: issuer}
}

// EncodeAccess signs an access token bound to the given refresh session.
func (c *Codec) EncodeAccess(subject, email string, userID kernel.UserID, sessionID kernel.SessionID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email:     email,
		UserID:    userID.String(),
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", iam.ErrRegistry.NewWithCause(iam.CodeInvalidToken, err).WithDetail("token signing failed")
	}
	return signed, nil
}

// EncodeRefresh signs a refresh token.
func (c *Codec) EncodeRefresh(subject, email string, userID kernel.UserID, anchor string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		Email:  email,
		UserID: userID.String(),
		Anchor: anchor,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", iam.ErrRegistry.NewWithCause(iam.CodeInvalidToken, err).WithDetail("token signing failed")
	}
	return signed, nil
}

// DecodeAccess verifies signature and expiry of an access token. Expiry and
// malformation surface as distinct error kinds.
func (c *Codec) DecodeAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.decode(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeRefresh verifies signature and expiry of a refresh token.
func (c *Codec) DecodeRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.decode(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Codec) decode(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return iam.ErrRegistry.NewWithCause(iam.CodeExpiredToken, err)
		}
		return iam.ErrRegistry.NewWithCause(iam.CodeInvalidToken, err)
	}
	if !parsed.Valid {
		return iam.ErrInvalidToken()
	}
	return nil
}

package config

import "time"

// AuthConfig configures token issuance and password hashing.
type AuthConfig struct {
	// JWTSecret signs both access and refresh tokens (HS256).
	JWTSecret string

	// Issuer is the iss claim on every token.
	Issuer string

	// AccessTokenTTL is the access token lifetime. It is additionally
	// clamped to the remaining life of the refresh session it references.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the refresh session lifetime.
	RefreshTokenTTL time.Duration

	// RefreshDigestSalt keys the digest under which refresh tokens are
	// stored. The raw token never touches the database.
	RefreshDigestSalt string

	// BcryptCost is the work factor for password and OTP hashes.
	BcryptCost int
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:         getEnv("JWT_SECRET", ""),
		Issuer:            getEnv("JWT_ISSUER", "perimeter"),
		AccessTokenTTL:    getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL:   getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RefreshDigestSalt: getEnv("REFRESH_DIGEST_SALT", ""),
		BcryptCost:        getEnvInt("BCRYPT_COST", 10),
	}
}

// OTPConfig configures the one-time-passcode engine.
type OTPConfig struct {
	// Length is the number of decimal digits in a code.
	Length int

	// TTL is how long a challenge stays redeemable.
	TTL time.Duration
}

func loadOTPConfig() OTPConfig {
	return OTPConfig{
		Length: getEnvInt("OTP_LENGTH", 8),
		TTL:    getEnvDuration("OTP_TTL", 10*time.Minute),
	}
}

package otpinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/iam/otp"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresOTPRepository implements otp.Repository on sqlx/Postgres.
type PostgresOTPRepository struct {
	db *sqlx.DB
}

// NewPostgresOTPRepository creates the repository.
func NewPostgresOTPRepository(db *sqlx.DB) otp.Repository {
	return &PostgresOTPRepository{db: db}
}

// Create inserts the challenge row.
func (r *PostgresOTPRepository) Create(ctx context.Context, c otp.Challenge) error {
	const query = `
		INSERT INTO otp_challenges (id, user_id, code_hash, used, expires_at, created_at)
		VALUES (:id, :user_id, :code_hash, :used, :expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return errx.Wrap(err, "failed to create OTP challenge", errx.KindUpstream)
	}
	return nil
}

// FindOutstanding returns the single live challenge for the user. Ordering by
// created_at guards against the (never expected) case of more than one.
func (r *PostgresOTPRepository) FindOutstanding(ctx context.Context, userID kernel.UserID) (*otp.Challenge, error) {
	const query = `
		SELECT * FROM otp_challenges
		WHERE user_id = $1 AND used = false AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1`
	var c otp.Challenge
	if err := r.db.GetContext(ctx, &c, query, userID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, otp.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find OTP challenge", errx.KindUpstream)
	}
	return &c, nil
}

// CountOutstanding counts live challenges for the user.
func (r *PostgresOTPRepository) CountOutstanding(ctx context.Context, userID kernel.UserID) (int, error) {
	const query = `
		SELECT COUNT(*) FROM otp_challenges
		WHERE user_id = $1 AND used = false AND expires_at > NOW()`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID.String()); err != nil {
		return 0, errx.Wrap(err, "failed to count OTP challenges", errx.KindUpstream)
	}
	return count, nil
}

// MarkUsed consumes the challenge.
func (r *PostgresOTPRepository) MarkUsed(ctx context.Context, id kernel.ChallengeID) error {
	const query = `UPDATE otp_challenges SET used = true WHERE id = $1 AND used = false`
	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to consume OTP challenge", errx.KindUpstream)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return otp.ErrNotFound()
	}
	return nil
}

// DeleteExpired drops rows past their expiry.
func (r *PostgresOTPRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM otp_challenges WHERE expires_at < NOW()`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete expired OTP challenges", errx.KindUpstream)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

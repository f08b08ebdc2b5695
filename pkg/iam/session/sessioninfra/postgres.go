package sessioninfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/iam/session"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresSessionRepository implements session.Repository on sqlx/Postgres.
type PostgresSessionRepository struct {
	db *sqlx.DB
}

// NewPostgresSessionRepository creates the repository.
func NewPostgresSessionRepository(db *sqlx.DB) session.Repository {
	return &PostgresSessionRepository{db: db}
}

// Create inserts the session row.
func (r *PostgresSessionRepository) Create(ctx context.Context, s session.RefreshSession) error {
	const query = `
		INSERT INTO refresh_sessions (id, user_id, token_digest, issued_at, expires_at, revoked)
		VALUES (:id, :user_id, :token_digest, :issued_at, :expires_at, :revoked)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return errx.Wrap(err, "duplicate session digest", errx.KindConflict)
		}
		return errx.Wrap(err, "failed to create refresh session", errx.KindUpstream)
	}
	return nil
}

// FindByID returns the session row regardless of its revoked flag; liveness
// is the caller's judgment.
func (r *PostgresSessionRepository) FindByID(ctx context.Context, id kernel.SessionID) (*session.RefreshSession, error) {
	const query = `SELECT * FROM refresh_sessions WHERE id = $1`
	var s session.RefreshSession
	if err := r.db.GetContext(ctx, &s, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find refresh session", errx.KindUpstream)
	}
	return &s, nil
}

// FindByDigest returns the session anchoring the given token digest.
func (r *PostgresSessionRepository) FindByDigest(ctx context.Context, digest string) (*session.RefreshSession, error) {
	const query = `SELECT * FROM refresh_sessions WHERE token_digest = $1`
	var s session.RefreshSession
	if err := r.db.GetContext(ctx, &s, query, digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find refresh session", errx.KindUpstream)
	}
	return &s, nil
}

// Revoke performs the conditional revocation. Zero rows affected means the
// session was already revoked (or gone): the caller lost the race.
func (r *PostgresSessionRepository) Revoke(ctx context.Context, id kernel.SessionID) error {
	const query = `UPDATE refresh_sessions SET revoked = true WHERE id = $1 AND revoked = false`
	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to revoke refresh session", errx.KindUpstream)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return session.ErrRevoked()
	}
	return nil
}

// Reinstate flips a revoked session back to live so its refresh token can be
// redeemed again. Reinstating a row that is not revoked is a no-op.
func (r *PostgresSessionRepository) Reinstate(ctx context.Context, id kernel.SessionID) error {
	const query = `UPDATE refresh_sessions SET revoked = false WHERE id = $1 AND revoked = true`
	if _, err := r.db.ExecContext(ctx, query, id.String()); err != nil {
		return errx.Wrap(err, "failed to reinstate refresh session", errx.KindUpstream)
	}
	return nil
}

// RevokeAllForUser marks every live session of the user revoked. Revoking
// zero rows is fine; the user may simply have no live sessions.
func (r *PostgresSessionRepository) RevokeAllForUser(ctx context.Context, userID kernel.UserID) error {
	const query = `UPDATE refresh_sessions SET revoked = true WHERE user_id = $1 AND revoked = false`
	if _, err := r.db.ExecContext(ctx, query, userID.String()); err != nil {
		return errx.Wrap(err, "failed to revoke user sessions", errx.KindUpstream)
	}
	return nil
}

// DeleteExpired drops rows past their expiry.
func (r *PostgresSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM refresh_sessions WHERE expires_at < NOW()`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete expired sessions", errx.KindUpstream)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

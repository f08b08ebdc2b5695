package userinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/perimeter/pkg/errx"
	"github.com/Abraxas-365/perimeter/pkg/iam/user"
	"github.com/Abraxas-365/perimeter/pkg/kernel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresUserRepository implements user.Repository on sqlx/Postgres.
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates the repository.
func NewPostgresUserRepository(db *sqlx.DB) user.Repository {
	return &PostgresUserRepository{db: db}
}

// CreateWithCredential inserts user and credential inside one transaction.
// A unique violation on email or username maps to Conflict; any failure
// rolls both inserts back.
func (r *PostgresUserRepository) CreateWithCredential(ctx context.Context, u user.User, passwordHash string) (*user.User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errx.Wrap(err, "failed to open transaction", errx.KindUpstream)
	}
	defer tx.Rollback()

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	const userQuery = `
		INSERT INTO users (id, email, username, full_name, bio, age, profession, is_active, is_verified, created_at, updated_at)
		VALUES (:id, :email, :username, :full_name, :bio, :age, :profession, :is_active, :is_verified, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, u); err != nil {
		return nil, mapWriteError(err, "failed to create user")
	}

	const credQuery = `
		INSERT INTO credentials (id, user_id, password_hash, updated_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, credQuery, uuid.NewString(), u.ID.String(), passwordHash, now); err != nil {
		return nil, mapWriteError(err, "failed to create credential")
	}

	if err := tx.Commit(); err != nil {
		return nil, errx.Wrap(err, "failed to commit registration", errx.KindUpstream)
	}
	return &u, nil
}

// Find dispatches on the lookup tag.
func (r *PostgresUserRepository) Find(ctx context.Context, lookup user.Lookup) (*user.User, error) {
	var query string
	switch lookup.Kind() {
	case user.LookupByID:
		query = `SELECT * FROM users WHERE id = $1`
	case user.LookupByEmail:
		query = `SELECT * FROM users WHERE email = $1`
	case user.LookupByUsername:
		query = `SELECT * FROM users WHERE username = $1`
	default:
		return nil, user.ErrRegistry.NewWithDetail(user.CodeInvalidLookup, "unknown lookup kind")
	}

	var u user.User
	if err := r.db.GetContext(ctx, &u, query, lookup.Value()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user", errx.KindUpstream)
	}
	return &u, nil
}

// Update applies only the set fields and returns the fresh row.
func (r *PostgresUserRepository) Update(ctx context.Context, id kernel.UserID, upd user.Update) (*user.User, error) {
	const query = `
		UPDATE users SET
			full_name  = COALESCE($2, full_name),
			bio        = COALESCE($3, bio),
			age        = COALESCE($4, age),
			profession = COALESCE($5, profession),
			updated_at = NOW()
		WHERE id = $1
		RETURNING *`

	var u user.User
	err := r.db.GetContext(ctx, &u, query, id.String(), upd.FullName, upd.Bio, upd.Age, upd.Profession)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to update user", errx.KindUpstream)
	}
	return &u, nil
}

// MarkVerified flips the verification flag.
func (r *PostgresUserRepository) MarkVerified(ctx context.Context, id kernel.UserID) error {
	const query = `UPDATE users SET is_verified = true, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to mark user verified", errx.KindUpstream)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return user.ErrUserNotFound()
	}
	return nil
}

// FindCredential returns the credential row for a user.
func (r *PostgresUserRepository) FindCredential(ctx context.Context, id kernel.UserID) (*user.Credential, error) {
	const query = `SELECT * FROM credentials WHERE user_id = $1`
	var c user.Credential
	if err := r.db.GetContext(ctx, &c, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrRegistry.NewWithDetail(user.CodeUserNotFound, "User credentials not found")
		}
		return nil, errx.Wrap(err, "failed to find credential", errx.KindUpstream)
	}
	return &c, nil
}

// UpdatePasswordHash replaces the stored hash in place.
func (r *PostgresUserRepository) UpdatePasswordHash(ctx context.Context, id kernel.UserID, hash string) error {
	const query = `UPDATE credentials SET password_hash = $2, updated_at = NOW() WHERE user_id = $1`
	result, err := r.db.ExecContext(ctx, query, id.String(), hash)
	if err != nil {
		return errx.Wrap(err, "failed to update password hash", errx.KindUpstream)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return user.ErrRegistry.NewWithDetail(user.CodeUserNotFound, "User credentials not found")
	}
	return nil
}

func mapWriteError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		return user.ErrDuplicateUser()
	}
	return errx.Wrap(err, msg, errx.KindUpstream)
}

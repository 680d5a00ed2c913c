package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/platform/httpx"
)

const profileColumns = `id, email, name, phone, company, position, role, password_hash, is_active, failed_login_attempts, locked_until, last_login, login_count, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for user profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID fetches a profile by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// GetByEmail fetches a profile by email, including the password hash.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE email = $1`, email)
	return scanProfile(row)
}

// Create inserts a new profile. A duplicate email maps to ErrDuplicate.
func (r *Repository) Create(ctx context.Context, tx pgx.Tx, p *Profile) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_profiles (id, email, name, phone, company, position, role, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())`,
		p.ID, p.Email, p.Name, p.Phone, p.Company, p.Position, string(p.Role), p.PasswordHash)
	if isUniqueViolation(err) {
		return httpx.ErrDuplicate
	}
	return err
}

// RecordLoginSuccess resets the failure counter, stamps last_login and
// increments the login count.
func (r *Repository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_profiles
		SET failed_login_attempts = 0, locked_until = NULL, last_login = $2, login_count = login_count + 1, updated_at = NOW()
		WHERE id = $1`, id, at)
	return err
}

// IncrementFailedAttempts bumps the failure counter and returns the new value.
func (r *Repository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		UPDATE user_profiles
		SET failed_login_attempts = failed_login_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts`, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, httpx.ErrNotFound
	}
	return count, err
}

// SetLockedUntil stamps the lock expiry on the profile.
func (r *Repository) SetLockedUntil(ctx context.Context, id uuid.UUID, until time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE user_profiles SET locked_until = $2, updated_at = NOW() WHERE id = $1`, id, until)
	return err
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var role string
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Phone, &p.Company, &p.Position, &role, &p.PasswordHash, &p.IsActive, &p.FailedLoginAttempts, &p.LockedUntil, &p.LastLogin, &p.LoginCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	parsed, err := authz.ParseRole(role)
	if err != nil {
		return nil, err
	}
	p.Role = parsed
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

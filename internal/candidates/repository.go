package candidates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spac-assessment/spac/internal/platform/httpx"
)

// dbtx is the query surface shared by pgxpool.Pool and pgx.Tx, so the same
// statements serve both the plain and the transactional paths.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const candidateColumns = `id, name, email, phone, company, position, completed, completed_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for candidates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a candidate. Duplicate emails map to ErrDuplicate.
func (r *Repository) Create(ctx context.Context, c *Candidate) error {
	return r.createIn(ctx, r.pool, c)
}

// CreateTx inserts a candidate inside an existing transaction. Registration
// uses this to create the profile and candidate as one unit.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, c *Candidate) error {
	return r.createIn(ctx, tx, c)
}

func (r *Repository) createIn(ctx context.Context, q dbtx, c *Candidate) error {
	row := q.QueryRow(ctx, `
		INSERT INTO candidates (id, name, email, phone, company, position, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW())
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Email, c.Phone, c.Company, c.Position)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID fetches a candidate by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Candidate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)
	return scanCandidate(row)
}

// List returns a page of candidates, newest first, plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Candidate, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MarkComplete stamps completion on a candidate.
func (r *Repository) MarkComplete(ctx context.Context, id uuid.UUID, at time.Time) (*Candidate, error) {
	return r.markCompleteIn(ctx, r.pool, id, at)
}

// MarkCompleteTx stamps completion inside an existing transaction. The final
// score step uses this so the score insert and the completion flip commit
// together.
func (r *Repository) MarkCompleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (*Candidate, error) {
	return r.markCompleteIn(ctx, tx, id, at)
}

func (r *Repository) markCompleteIn(ctx context.Context, q dbtx, id uuid.UUID, at time.Time) (*Candidate, error) {
	row := q.QueryRow(ctx, `
		UPDATE candidates
		SET completed = TRUE, completed_at = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+candidateColumns, id, at)
	return scanCandidate(row)
}

// ListUnreconciled returns candidates that have scores for all steps but were
// never flipped to completed. The reconcile job repairs these leftovers from
// the old two-call submission sequence.
func (r *Repository) ListUnreconciled(ctx context.Context, totalSteps int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id
		FROM candidates c
		WHERE c.completed = FALSE
		  AND (SELECT COUNT(DISTINCT s.step) FROM scores s WHERE s.user_id = c.id) >= $1`, totalSteps)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanCandidate(row pgx.Row) (*Candidate, error) {
	var c Candidate
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Position, &c.Completed, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

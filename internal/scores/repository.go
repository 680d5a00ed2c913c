package scores

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spac-assessment/spac/internal/candidates"
	"github.com/spac-assessment/spac/internal/platform/db"
	"github.com/spac-assessment/spac/internal/platform/httpx"
)

// Filter narrows score listings.
type Filter struct {
	UserID *uuid.UUID
	Step   *int
	Type   *Type
}

// Repository provides PostgreSQL backed persistence for scores.
type Repository struct {
	pool       *pgxpool.Pool
	candidates *candidates.Repository
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, candidateRepo *candidates.Repository) *Repository {
	return &Repository{pool: pool, candidates: candidateRepo}
}

// Submit inserts the score and, when markComplete is set, flips the
// candidate to completed — both inside one transaction, so a failure in
// either leaves no partial state behind.
func (r *Repository) Submit(ctx context.Context, score *Score, markComplete bool, completedAt time.Time) error {
	answersJSON, err := json.Marshal(score.Answers)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO scores (id, user_id, step, type, answers, total_score, average_score, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			score.ID, score.UserID, score.Step, string(score.Type), answersJSON, score.TotalScore, score.AverageScore, score.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return httpx.ErrDuplicate
			}
			return err
		}
		if markComplete {
			if _, err := r.candidates.MarkCompleteTx(ctx, tx, score.UserID, completedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns scores matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Score, error) {
	query := `SELECT id, user_id, step, type, answers, total_score, average_score, created_at FROM scores WHERE TRUE`
	args := []any{}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if f.Step != nil {
		args = append(args, *f.Step)
		query += ` AND step = $` + strconv.Itoa(len(args))
	}
	if f.Type != nil {
		args = append(args, string(*f.Type))
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	return r.query(ctx, query, args...)
}

// ListByUser returns a user's scores ordered by step.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Score, error) {
	return r.query(ctx, `SELECT id, user_id, step, type, answers, total_score, average_score, created_at FROM scores WHERE user_id = $1 ORDER BY step ASC`, userID)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Score, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Score
	for rows.Next() {
		var s Score
		var typ string
		var answersJSON []byte
		if err := rows.Scan(&s.ID, &s.UserID, &s.Step, &typ, &answersJSON, &s.TotalScore, &s.AverageScore, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Type = Type(typ)
		if err := json.Unmarshal(answersJSON, &s.Answers); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

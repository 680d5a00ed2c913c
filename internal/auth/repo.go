package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spac-assessment/spac/internal/candidates"
	"github.com/spac-assessment/spac/internal/platform/db"
	"github.com/spac-assessment/spac/internal/profiles"
)

// PGRegistrationStore implements RegistrationStore on PostgreSQL.
type PGRegistrationStore struct {
	pool       *pgxpool.Pool
	profiles   *profiles.Repository
	candidates *candidates.Repository
}

// NewRegistrationStore constructs a PGRegistrationStore.
func NewRegistrationStore(pool *pgxpool.Pool, profileRepo *profiles.Repository, candidateRepo *candidates.Repository) *PGRegistrationStore {
	return &PGRegistrationStore{pool: pool, profiles: profileRepo, candidates: candidateRepo}
}

// CreateAccount inserts the profile and the candidate record in one
// transaction.
func (s *PGRegistrationStore) CreateAccount(ctx context.Context, profile *profiles.Profile, candidate *candidates.Candidate) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.profiles.Create(ctx, tx, profile); err != nil {
			return err
		}
		return s.candidates.CreateTx(ctx, tx, candidate)
	})
}

var _ RegistrationStore = (*PGRegistrationStore)(nil)

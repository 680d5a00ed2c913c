package candidates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/shared"
)

// RepositoryPort defines data access methods for candidates.
type RepositoryPort interface {
	Create(ctx context.Context, c *Candidate) error
	GetByID(ctx context.Context, id uuid.UUID) (*Candidate, error)
	List(ctx context.Context, limit, offset int) ([]Candidate, int, error)
	MarkComplete(ctx context.Context, id uuid.UUID, at time.Time) (*Candidate, error)
}

// Service handles candidate business logic.
type Service struct {
	repo  RepositoryPort
	title cases.Caser
	now   func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{
		repo:  repo,
		title: cases.Title(language.BrazilianPortuguese),
		now:   time.Now,
	}
}

// CreateInput carries the fields accepted when creating a candidate.
type CreateInput struct {
	Name     string
	Email    string
	Phone    string
	Company  string
	Position string
}

// Create validates and persists a new candidate. Name and email are
// required; the name is title-cased and the email lowercased before storage.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Candidate, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", httpx.ErrValidation)
	}

	c := &Candidate{
		ID:       uuid.New(),
		Name:     s.title.String(name),
		Email:    email,
		Phone:    strings.TrimSpace(in.Phone),
		Company:  strings.TrimSpace(in.Company),
		Position: strings.TrimSpace(in.Position),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns a page of candidates with pagination metadata.
func (s *Service) List(ctx context.Context, page, limit int) ([]Candidate, shared.Pagination, error) {
	p := shared.NewPagination(page, limit, 0)
	items, total, err := s.repo.List(ctx, p.Limit, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.Limit, total), nil
}

// Get returns a single candidate.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Candidate, error) {
	return s.repo.GetByID(ctx, id)
}

// Complete marks the candidate as finished. A zero completedAt defaults to
// the current time.
func (s *Service) Complete(ctx context.Context, userID uuid.UUID, completedAt time.Time) (*Candidate, error) {
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	return s.repo.MarkComplete(ctx, userID, completedAt)
}

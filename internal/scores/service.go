package scores

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/spac-assessment/spac/internal/candidates"
	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/shared"
)

// RepositoryPort abstracts score persistence for the service layer.
type RepositoryPort interface {
	Submit(ctx context.Context, score *Score, markComplete bool, completedAt time.Time) error
	List(ctx context.Context, f Filter) ([]Score, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Score, error)
}

// CandidatePort is the slice of the candidate service the summary needs.
type CandidatePort interface {
	Get(ctx context.Context, id uuid.UUID) (*candidates.Candidate, error)
}

// Service implements score submission and reporting.
type Service struct {
	repo       RepositoryPort
	candidates CandidatePort
	audit      *shared.AuditLogger
	cache      *redis.Client
	logger     *slog.Logger
	group      singleflight.Group
	cacheTTL   time.Duration
	now        func() time.Time
}

// NewService constructs a Service. The cache client may be nil; summaries are
// then computed on every request.
func NewService(repo RepositoryPort, candidateSvc CandidatePort, audit *shared.AuditLogger, cache *redis.Client, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		candidates: candidateSvc,
		audit:      audit,
		cache:      cache,
		logger:     logger,
		cacheTTL:   5 * time.Minute,
		now:        time.Now,
	}
}

// SubmitInput carries one step's answers.
type SubmitInput struct {
	UserID  uuid.UUID
	Step    int
	Type    Type
	Answers map[int]int
}

// SubmitStep validates and persists a step submission. Submitting the last
// step also marks the candidate as completed, in the same transaction as the
// score insert. Resubmitting a step the user already answered fails with
// ErrDuplicate.
func (s *Service) SubmitStep(ctx context.Context, in SubmitInput) (*Score, error) {
	if in.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: userId is required", httpx.ErrValidation)
	}
	if in.Step < MinStep || in.Step > TotalSteps {
		return nil, fmt.Errorf("%w: step must be between %d and %d", httpx.ErrValidation, MinStep, TotalSteps)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown score type %q", httpx.ErrValidation, in.Type)
	}
	if len(in.Answers) == 0 {
		return nil, fmt.Errorf("%w: answers must not be empty", httpx.ErrValidation)
	}
	for q, v := range in.Answers {
		if v < MinAnswer || v > MaxAnswer {
			return nil, fmt.Errorf("%w: answer %d out of range: %d", httpx.ErrValidation, q, v)
		}
	}

	total, average := Compute(in.Answers)
	now := s.now().UTC()
	score := &Score{
		ID:           uuid.New(),
		UserID:       in.UserID,
		Step:         in.Step,
		Type:         in.Type,
		Answers:      in.Answers,
		TotalScore:   total,
		AverageScore: average,
		CreatedAt:    now,
	}

	if err := s.repo.Submit(ctx, score, in.Step == TotalSteps, now); err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, in.UserID)
	s.recordAudit(ctx, score)
	return score, nil
}

// List returns scores matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Score, error) {
	if f.Step != nil && (*f.Step < MinStep || *f.Step > TotalSteps) {
		return nil, fmt.Errorf("%w: step must be between %d and %d", httpx.ErrValidation, MinStep, TotalSteps)
	}
	if f.Type != nil && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown score type %q", httpx.ErrValidation, *f.Type)
	}
	return s.repo.List(ctx, f)
}

func (s *Service) recordAudit(ctx context.Context, score *Score) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  score.UserID.String(),
		Action:   shared.AuditAssessmentSubmit,
		Entity:   "score",
		EntityID: score.ID.String(),
		Meta: map[string]any{
			"step":  score.Step,
			"type":  string(score.Type),
			"total": score.TotalScore,
		},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}

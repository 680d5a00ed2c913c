package scores_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spac-assessment/spac/internal/candidates"
	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/scores"
	_ "github.com/spac-assessment/spac/testing"
)

type memScoreRepo struct {
	submitted    []scores.Score
	markComplete []bool
	submitErr    error
}

func (m *memScoreRepo) Submit(ctx context.Context, score *scores.Score, markComplete bool, completedAt time.Time) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, *score)
	m.markComplete = append(m.markComplete, markComplete)
	return nil
}

func (m *memScoreRepo) List(ctx context.Context, f scores.Filter) ([]scores.Score, error) {
	return m.submitted, nil
}

func (m *memScoreRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]scores.Score, error) {
	return m.submitted, nil
}

type stubCandidates struct {
	candidate *candidates.Candidate
}

func (s *stubCandidates) Get(ctx context.Context, id uuid.UUID) (*candidates.Candidate, error) {
	if s.candidate == nil {
		return nil, httpx.ErrNotFound
	}
	return s.candidate, nil
}

func TestSubmitStepComputesTotals(t *testing.T) {
	repo := &memScoreRepo{}
	svc := scores.NewService(repo, &stubCandidates{}, nil, nil, nil)

	score, err := svc.SubmitStep(context.Background(), scores.SubmitInput{
		UserID:  uuid.New(),
		Step:    2,
		Type:    scores.TypePersonality,
		Answers: map[int]int{1: 5, 2: 4},
	})
	require.NoError(t, err)
	require.Equal(t, 9, score.TotalScore)
	require.InDelta(t, 4.5, score.AverageScore, 1e-9)

	require.Len(t, repo.submitted, 1)
	require.False(t, repo.markComplete[0], "step 2 must not complete the candidate")
}

func TestSubmitStepFinalStepCompletesCandidate(t *testing.T) {
	repo := &memScoreRepo{}
	svc := scores.NewService(repo, &stubCandidates{}, nil, nil, nil)

	_, err := svc.SubmitStep(context.Background(), scores.SubmitInput{
		UserID:  uuid.New(),
		Step:    scores.TotalSteps,
		Type:    scores.TypeFinal,
		Answers: map[int]int{401: 3},
	})
	require.NoError(t, err)
	require.True(t, repo.markComplete[0], "final step must complete the candidate")
}

func TestSubmitStepValidation(t *testing.T) {
	svc := scores.NewService(&memScoreRepo{}, &stubCandidates{}, nil, nil, nil)
	userID := uuid.New()

	cases := []struct {
		name string
		in   scores.SubmitInput
	}{
		{"missing user", scores.SubmitInput{Step: 1, Type: scores.TypePersonality, Answers: map[int]int{1: 3}}},
		{"step below range", scores.SubmitInput{UserID: userID, Step: 0, Type: scores.TypePersonality, Answers: map[int]int{1: 3}}},
		{"step above range", scores.SubmitInput{UserID: userID, Step: 5, Type: scores.TypePersonality, Answers: map[int]int{1: 3}}},
		{"unknown type", scores.SubmitInput{UserID: userID, Step: 1, Type: "aptitude", Answers: map[int]int{1: 3}}},
		{"empty answers", scores.SubmitInput{UserID: userID, Step: 1, Type: scores.TypePersonality, Answers: map[int]int{}}},
		{"answer too low", scores.SubmitInput{UserID: userID, Step: 1, Type: scores.TypePersonality, Answers: map[int]int{1: 0}}},
		{"answer too high", scores.SubmitInput{UserID: userID, Step: 1, Type: scores.TypePersonality, Answers: map[int]int{1: 6}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitStep(context.Background(), tc.in)
			require.ErrorIs(t, err, httpx.ErrValidation)
		})
	}
}

func TestSubmitStepPropagatesDuplicate(t *testing.T) {
	repo := &memScoreRepo{submitErr: httpx.ErrDuplicate}
	svc := scores.NewService(repo, &stubCandidates{}, nil, nil, nil)

	_, err := svc.SubmitStep(context.Background(), scores.SubmitInput{
		UserID:  uuid.New(),
		Step:    1,
		Type:    scores.TypePersonality,
		Answers: map[int]int{1: 3},
	})
	require.True(t, errors.Is(err, httpx.ErrDuplicate))
}

func TestSummaryAggregatesSteps(t *testing.T) {
	userID := uuid.New()
	completedAt := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	repo := &memScoreRepo{submitted: []scores.Score{
		{Step: 1, Type: scores.TypePersonality, Answers: map[int]int{101: 5, 102: 4}, TotalScore: 9, AverageScore: 4.5},
		{Step: 2, Type: scores.TypePersonality, Answers: map[int]int{201: 3, 202: 4}, TotalScore: 7, AverageScore: 3.5},
	}}
	cand := &stubCandidates{candidate: &candidates.Candidate{
		Name:        "Maria Silva",
		Email:       "maria@example.com",
		Completed:   true,
		CompletedAt: &completedAt,
	}}

	svc := scores.NewService(repo, cand, nil, nil, nil)
	sum, err := svc.Summary(context.Background(), userID)
	require.NoError(t, err)

	require.Equal(t, 4, sum.TotalQuestions)
	require.Equal(t, 2, sum.CompletedSteps)
	require.Equal(t, 16, sum.TotalScore)
	require.InDelta(t, 4.0, sum.AverageScore, 1e-9)
	// 4.0 of 5 maps to 80 on the percentage scale.
	require.Equal(t, 80, sum.EstimatedScore)
	require.NotNil(t, sum.CompletionDate)
	require.Equal(t, completedAt, *sum.CompletionDate)
	require.Equal(t, "Maria Silva", sum.Candidate.Nome)
}

func TestSummaryEmptyScoresYieldsZero(t *testing.T) {
	svc := scores.NewService(&memScoreRepo{}, &stubCandidates{}, nil, nil, nil)
	sum, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Zero(t, sum.TotalQuestions)
	require.Zero(t, sum.EstimatedScore)
	require.Zero(t, sum.AverageScore)
}

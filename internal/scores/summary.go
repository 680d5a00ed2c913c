package scores

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const summaryCachePrefix = "scores:summary:"

// StepSummary is the per-step slice of a summary.
type StepSummary struct {
	Step          int     `json:"step"`
	Type          string  `json:"type"`
	TotalScore    int     `json:"totalScore"`
	AverageScore  float64 `json:"averageScore"`
	QuestionCount int     `json:"questionCount"`
}

// SummaryCandidate carries the candidate identity shown on result pages.
type SummaryCandidate struct {
	Nome    string `json:"nome"`
	Email   string `json:"email"`
	Empresa string `json:"empresa,omitempty"`
	Cargo   string `json:"cargo,omitempty"`
}

// Summary aggregates a user's assessment results. EstimatedScore maps the
// overall 1–5 average onto a 0–100 scale.
type Summary struct {
	TotalQuestions int               `json:"totalQuestions"`
	CompletedSteps int               `json:"completedSteps"`
	TotalScore     int               `json:"totalScore"`
	AverageScore   float64           `json:"averageScore"`
	EstimatedScore int               `json:"estimatedScore"`
	CompletionDate *time.Time        `json:"completionDate,omitempty"`
	Steps          []StepSummary     `json:"steps"`
	Candidate      *SummaryCandidate `json:"candidate,omitempty"`
}

// Summary computes the aggregate view of a user's scores. Concurrent requests
// for the same user collapse into one computation, and results are cached
// briefly; a submission invalidates the cache.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	key := summaryCachePrefix + userID.String()

	if cached := s.cachedSummary(ctx, key); cached != nil {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		sum, err := s.buildSummary(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.storeSummary(ctx, key, sum)
		return sum, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Summary), nil
}

func (s *Service) buildSummary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Steps: make([]StepSummary, 0, len(list))}
	for _, sc := range list {
		sum.TotalQuestions += len(sc.Answers)
		sum.TotalScore += sc.TotalScore
		sum.Steps = append(sum.Steps, StepSummary{
			Step:          sc.Step,
			Type:          string(sc.Type),
			TotalScore:    sc.TotalScore,
			AverageScore:  sc.AverageScore,
			QuestionCount: len(sc.Answers),
		})
	}
	sum.CompletedSteps = len(list)
	if sum.TotalQuestions > 0 {
		sum.AverageScore = float64(sum.TotalScore) / float64(sum.TotalQuestions)
		sum.EstimatedScore = int(math.Round(sum.AverageScore / float64(MaxAnswer) * 100))
	}

	if s.candidates != nil {
		candidate, err := s.candidates.Get(ctx, userID)
		if err == nil {
			sum.Candidate = &SummaryCandidate{
				Nome:    candidate.Name,
				Email:   candidate.Email,
				Empresa: candidate.Company,
				Cargo:   candidate.Position,
			}
			sum.CompletionDate = candidate.CompletedAt
		}
	}
	if sum.CompletionDate == nil && sum.CompletedSteps > 0 {
		now := s.now()
		sum.CompletionDate = &now
	}
	return sum, nil
}

func (s *Service) cachedSummary(ctx context.Context, key string) *Summary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("summary cache get", slog.Any("error", err))
		}
		return nil
	}
	var sum Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil
	}
	return &sum
}

func (s *Service) storeSummary(ctx context.Context, key string, sum *Summary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(sum)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Warn("summary cache set", slog.Any("error", err))
	}
}

func (s *Service) invalidateSummary(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCachePrefix+userID.String()).Err(); err != nil && s.logger != nil {
		s.logger.Warn("summary cache invalidate", slog.Any("error", err))
	}
}

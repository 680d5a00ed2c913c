package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/spac-assessment/spac/internal/candidates"
	jobmetrics "github.com/spac-assessment/spac/internal/jobs"
	"github.com/spac-assessment/spac/internal/scores"
)

const (
	// TaskCompletionReconcile repairs candidates who have scores for every
	// step but were never marked completed. New submissions complete
	// atomically; this covers rows written before that was the case.
	TaskCompletionReconcile = "candidates:reconcile"

	// CronCompletionReconcile runs the reconcile pass every hour.
	CronCompletionReconcile = "30 * * * *"
)

// CompletionReconcilePayload carries scheduling metadata.
type CompletionReconcilePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewCompletionReconcileTask constructs an Asynq task for the reconcile pass.
func NewCompletionReconcileTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(CompletionReconcilePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCompletionReconcile, body, asynq.Queue(QueueDefault)), nil
}

// Reconciler marks candidates completed once all their step scores exist.
type Reconciler struct {
	repo    *candidates.Repository
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewReconciler constructs a Reconciler.
func NewReconciler(repo *candidates.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) *Reconciler {
	return &Reconciler{repo: repo, logger: logger, metrics: metrics, now: time.Now}
}

// Handle processes TaskCompletionReconcile tasks.
func (r *Reconciler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := r.metrics.Track("completion_reconcile")
	var payload CompletionReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}

	ids, err := r.repo.ListUnreconciled(ctx, scores.TotalSteps)
	if err != nil {
		return tracker.End(err)
	}
	if len(ids) == 0 {
		return tracker.End(nil)
	}

	now := r.now().UTC()
	repaired := 0
	for _, id := range ids {
		if _, err := r.repo.MarkComplete(ctx, id, now); err != nil {
			r.logger.Warn("reconcile mark complete",
				slog.String("candidate_id", id.String()), slog.Any("error", err))
			continue
		}
		repaired++
	}
	r.logger.Info("completion reconcile", slog.Int("found", len(ids)), slog.Int("repaired", repaired))
	return tracker.End(nil)
}

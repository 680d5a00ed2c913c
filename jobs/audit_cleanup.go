package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/spac-assessment/spac/internal/jobs"
	"github.com/spac-assessment/spac/internal/shared"
)

const (
	// TaskAuditCleanup prunes audit log entries older than the retention
	// window.
	TaskAuditCleanup = "audit:cleanup"

	// CronAuditCleanup runs the cleanup nightly at 02:00 UTC.
	CronAuditCleanup = "0 2 * * *"

	// AuditRetention keeps one year of audit history.
	AuditRetention = 365 * 24 * time.Hour
)

// AuditCleanupPayload carries the retention override, zero for the default.
type AuditCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditCleanupTask constructs an Asynq task for audit log cleanup.
func NewAuditCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(AuditCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditCleanup, body, asynq.Queue(QueueDefault)), nil
}

// AuditCleaner prunes old audit log rows.
type AuditCleaner struct {
	audit   *shared.AuditLogger
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAuditCleaner constructs an AuditCleaner.
func NewAuditCleaner(audit *shared.AuditLogger, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditCleaner {
	return &AuditCleaner{audit: audit, logger: logger, metrics: metrics}
}

// Handle processes TaskAuditCleanup tasks.
func (c *AuditCleaner) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := c.metrics.Track("audit_cleanup")
	var payload AuditCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = AuditRetention
	}

	deleted, err := c.audit.Cleanup(ctx, retention)
	if err != nil {
		return tracker.End(err)
	}
	c.logger.Info("audit cleanup", slog.Int64("deleted", deleted))
	return tracker.End(nil)
}

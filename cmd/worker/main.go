package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/spac-assessment/spac/internal/app"
	"github.com/spac-assessment/spac/internal/candidates"
	jobmetrics "github.com/spac-assessment/spac/internal/jobs"
	"github.com/spac-assessment/spac/internal/platform/db"
	"github.com/spac-assessment/spac/internal/shared"
	"github.com/spac-assessment/spac/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	candidateRepo := candidates.NewRepository(pool)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := jobmetrics.NewMetrics(nil)

	reconciler := jobs.NewReconciler(candidateRepo, logger, metrics)
	auditCleaner := jobs.NewAuditCleaner(auditLogger, logger, metrics)

	reconcileTask, err := jobs.NewCompletionReconcileTask(time.Now().UTC())
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewAuditCleanupTask(jobs.AuditRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCompletionReconcile, Handler: reconciler.Handle},
			{Type: jobs.TaskAuditCleanup, Handler: auditCleaner.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.CronCompletionReconcile, Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: jobs.CronAuditCleanup, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/spac-assessment/spac/internal/app"
	"github.com/spac-assessment/spac/internal/assessment"
	"github.com/spac-assessment/spac/internal/auth"
	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/candidates"
	"github.com/spac-assessment/spac/internal/observability"
	"github.com/spac-assessment/spac/internal/platform/cache"
	"github.com/spac-assessment/spac/internal/platform/db"
	"github.com/spac-assessment/spac/internal/profiles"
	"github.com/spac-assessment/spac/internal/scores"
	"github.com/spac-assessment/spac/internal/shared"
	"github.com/spac-assessment/spac/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "spac_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)

	profileRepo := profiles.NewRepository(pool)
	profileService := profiles.NewService(profileRepo, cfg.LoginMaxAttempts, cfg.LoginLockWindow)

	guard := authz.NewGuard(profileService, logger)
	authzMiddleware := authz.Middleware{Loader: profileService, Logger: logger}

	candidateRepo := candidates.NewRepository(pool)
	candidateService := candidates.NewService(candidateRepo)
	candidateHandler := candidates.NewHandler(logger, candidateService, authzMiddleware)

	registrationStore := auth.NewRegistrationStore(pool, profileRepo, candidateRepo)
	authService := auth.NewService(registrationStore, profileService, auditLogger, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	scoreRepo := scores.NewRepository(pool, candidateRepo)
	scoreService := scores.NewService(scoreRepo, candidateService, auditLogger, redisClient, logger)
	scoreHandler := scores.NewHandler(logger, scoreService, authzMiddleware)

	assessmentStore := assessment.NewStore(redisClient, cfg.SessionTTL)
	assessmentHandler := assessment.NewHandler(logger, assessmentStore, scoreService, csrfManager)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Guard:             guard,
		AuthHandler:       authHandler,
		CandidatesHandler: candidateHandler,
		ScoresHandler:     scoreHandler,
		AssessmentHandler: assessmentHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

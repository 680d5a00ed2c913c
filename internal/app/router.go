package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/spac-assessment/spac/internal/assessment"
	"github.com/spac-assessment/spac/internal/auth"
	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/candidates"
	"github.com/spac-assessment/spac/internal/observability"
	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/scores"
	"github.com/spac-assessment/spac/internal/shared"
	"github.com/spac-assessment/spac/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	Guard             *authz.Guard
	AuthHandler       *auth.Handler
	CandidatesHandler *candidates.Handler
	ScoresHandler     *scores.Handler
	AssessmentHandler *assessment.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/csrf", func(w http.ResponseWriter, req *http.Request) {
			sess := shared.SessionFromContext(req.Context())
			token, err := params.CSRFManager.EnsureToken(req.Context(), sess)
			if err != nil {
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]any{"csrfToken": token})
		})
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/candidates", params.CandidatesHandler.MountRoutes)
		r.Route("/scores", params.ScoresHandler.MountRoutes)
		r.Route("/assessment", params.AssessmentHandler.MountRoutes)
	})

	// Page routes are placeholders for the SPA shell; the gate enforces the
	// login redirects and role checks the frontend relies on.
	r.Group(func(r chi.Router) {
		r.Use(PageGate(params.Guard, params.Logger))
		for _, page := range []string{
			"/auth/login", "/auth/register",
			"/dashboard", "/form", "/settings", "/settings/users",
			"/settings/backup", "/settings/api-panel",
			"/admin", "/admin/dashboard", "/admin/users", "/admin/system",
		} {
			page := page
			r.Get(page, func(w http.ResponseWriter, req *http.Request) {
				httpx.JSON(w, http.StatusOK, map[string]any{"page": page})
			})
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

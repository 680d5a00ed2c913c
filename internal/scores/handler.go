package scores

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/shared"
)

// Submissions allowed per IP inside the window.
const (
	submitRateLimit  = 10
	submitRateWindow = time.Minute
)

// Handler wires HTTP endpoints for score submission and reporting.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	authz     authz.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		authz:     mw,
	}
}

// MountRoutes registers score routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(submitRateLimit, submitRateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/", h.handleSubmit)
	})
	r.Get("/", h.handleList)
	r.Get("/summary/{userId}", h.handleSummary)
}

type submitRequest struct {
	UserID  string         `json:"userId" validate:"required,uuid"`
	Step    int            `json:"step" validate:"required,min=1,max=4"`
	Type    string         `json:"type" validate:"required"`
	Answers map[string]int `json:"answers" validate:"required"`
}

type scoreJSON struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	Step         int         `json:"step"`
	Type         string      `json:"type"`
	Answers      map[int]int `json:"answers"`
	TotalScore   int         `json:"totalScore"`
	AverageScore float64     `json:"averageScore"`
	CreatedAt    string      `json:"createdAt"`
}

func toScoreJSON(s Score) scoreJSON {
	return scoreJSON{
		ID:           s.ID.String(),
		UserID:       s.UserID.String(),
		Step:         s.Step,
		Type:         string(s.Type),
		Answers:      s.Answers,
		TotalScore:   s.TotalScore,
		AverageScore: s.AverageScore,
		CreatedAt:    s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId, step, type and answers are required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId must be a UUID")
		return
	}

	answers := make(map[int]int, len(req.Answers))
	for k, v := range req.Answers {
		q, err := strconv.Atoi(k)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "answer keys must be question numbers")
			return
		}
		answers[q] = v
	}

	score, err := h.service.SubmitStep(r.Context(), SubmitInput{
		UserID:  userID,
		Step:    req.Step,
		Type:    Type(req.Type),
		Answers: answers,
	})
	if err != nil {
		h.logger.Warn("submit score", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "score recorded",
		"score":   toScoreJSON(*score),
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var f Filter
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId must be a UUID")
			return
		}
		f.UserID = &id
	}
	if raw := r.URL.Query().Get("step"); raw != "" {
		step, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "step must be a number")
			return
		}
		f.Step = &step
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := Type(raw)
		f.Type = &t
	}

	if !h.canView(r, f.UserID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	list, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list scores", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]scoreJSON, 0, len(list))
	for _, s := range list {
		out = append(out, toScoreJSON(s))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"scores": out})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId must be a UUID")
		return
	}

	if !h.canView(r, &userID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		h.logger.Error("score summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// canView allows users to read their own scores; anything broader needs the
// assessments read grant.
func (h *Handler) canView(r *http.Request, target *uuid.UUID) bool {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return false
	}
	if target != nil && sess.User() == target.String() {
		return true
	}
	if h.authz.Loader == nil {
		return false
	}
	subject, err := h.authz.Loader.LoadSubject(r.Context(), sess.User())
	if err != nil {
		return false
	}
	return authz.Allowed(subject.Role, "assessments", authz.ActionRead)
}

package candidates

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/platform/httpx"
)

// Handler wires HTTP endpoints for candidate management.
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

// MountRoutes registers candidate routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Post("/complete", h.complete)
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireGrant("candidates", authz.ActionRead))
		r.Get("/", h.list)
	})
}

// Wire field names follow the original intake form.
type createRequest struct {
	Nome     string `json:"nome" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Telefone string `json:"telefone"`
	Empresa  string `json:"empresa"`
	Cargo    string `json:"cargo"`
}

type completeRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	Completed   *bool  `json:"completed"`
	CompletedAt string `json:"completedAt"`
}

type candidateJSON struct {
	ID          string     `json:"id"`
	Nome        string     `json:"nome"`
	Email       string     `json:"email"`
	Telefone    string     `json:"telefone,omitempty"`
	Empresa     string     `json:"empresa,omitempty"`
	Cargo       string     `json:"cargo,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toCandidateJSON(c *Candidate) candidateJSON {
	return candidateJSON{
		ID:          c.ID.String(),
		Nome:        c.Name,
		Email:       c.Email,
		Telefone:    c.Phone,
		Empresa:     c.Company,
		Cargo:       c.Position,
		Completed:   c.Completed,
		CompletedAt: c.CompletedAt,
		CreatedAt:   c.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "nome and email are required")
		return
	}

	candidate, err := h.service.Create(r.Context(), CreateInput{
		Name:     req.Nome,
		Email:    req.Email,
		Phone:    req.Telefone,
		Company:  req.Empresa,
		Position: req.Cargo,
	})
	if err != nil {
		h.logger.Error("create candidate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":   "candidate created",
		"candidate": toCandidateJSON(candidate),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, pagination, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("list candidates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]candidateJSON, len(items))
	for i := range items {
		out[i] = toCandidateJSON(&items[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"candidates": out,
		"pagination": pagination,
	})
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId is required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId must be a UUID")
		return
	}

	var completedAt time.Time
	if req.CompletedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.CompletedAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "completedAt must be RFC3339")
			return
		}
		completedAt = parsed
	}

	candidate, err := h.service.Complete(r.Context(), userID, completedAt)
	if err != nil {
		h.logger.Error("complete candidate", slog.Any("error", err), slog.String("user_id", req.UserID))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":   "candidate marked complete",
		"candidate": toCandidateJSON(candidate),
	})
}

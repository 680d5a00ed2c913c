package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/profiles"
	"github.com/spac-assessment/spac/internal/shared"
)

// Login attempts allowed per IP inside the window, mirroring the account
// lock thresholds.
const (
	loginRateLimit  = 5
	loginRateWindow = 15 * time.Minute
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(loginRateLimit, loginRateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Nome     string `json:"nome" validate:"required"`
	Telefone string `json:"telefone"`
	Empresa  string `json:"empresa"`
	Cargo    string `json:"cargo"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userJSON struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Nome     string `json:"nome"`
	Telefone string `json:"telefone,omitempty"`
	Empresa  string `json:"empresa,omitempty"`
	Cargo    string `json:"cargo,omitempty"`
	Role     string `json:"role"`
}

func toUserJSON(p *profiles.Profile) userJSON {
	return userJSON{
		ID:       p.ID.String(),
		Email:    p.Email,
		Nome:     p.Name,
		Telefone: p.Phone,
		Empresa:  p.Company,
		Cargo:    p.Position,
		Role:     string(p.Role),
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email, password and nome are required")
		return
	}

	profile, err := h.service.Register(r.Context(), RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Nome,
		Phone:    req.Telefone,
		Company:  req.Empresa,
		Position: req.Cargo,
	})
	if err != nil {
		var policyErr *PolicyError
		if errors.As(err, &policyErr) {
			httpx.JSON(w, http.StatusBadRequest, map[string]any{
				"error":  "password does not satisfy the policy",
				"errors": policyErr.Violations,
			})
			return
		}
		h.logger.Error("register", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "user registered",
		"user":    toUserJSON(profile),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	profile, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrAccountLocked):
			httpx.Problem(w, http.StatusForbidden, "Account Locked", "too many failed attempts, try again later")
		case errors.Is(err, shared.ErrInvalidCredentials):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		default:
			h.logger.Error("login", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.sessions.Renew(r.Context(), sess)
	sess.SetUser(profile.ID.String())

	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"user":    toUserJSON(profile),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.User() != "" {
		h.service.Logout(r.Context(), sess.User())
		h.sessions.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

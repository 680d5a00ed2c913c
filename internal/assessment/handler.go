package assessment

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/scores"
	"github.com/spac-assessment/spac/internal/shared"
)

// Handler drives the multi-step questionnaire over the session. Advancing past
// a finished step submits its answers as a score for logged-in users, so the
// last step's advance also completes the candidate.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	scores    *scores.Service
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store *Store, scoreSvc *scores.Service, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		store:     store,
		scores:    scoreSvc,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers assessment flow routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleCurrent)
	r.Post("/start", h.handleStart)
	r.Post("/answer", h.handleAnswer)
	r.Post("/options", h.handleOptions)
	r.Post("/advance", h.handleAdvance)
	r.Post("/retreat", h.handleRetreat)
	r.Post("/reset", h.handleReset)
}

type startRequest struct {
	Nome  string `json:"nome" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type answerRequest struct {
	Question int `json:"question" validate:"required"`
	Value    int `json:"value" validate:"required,min=1,max=5"`
}

type optionRequest struct {
	Question int    `json:"question" validate:"required"`
	Option   string `json:"option" validate:"required"`
}

// handleCurrent returns the flow state along with the CSRF token the mutating
// endpoints require.
func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	p, err := h.store.Load(r.Context(), sess.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var token string
	if h.csrf != nil {
		token, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	def, _ := StepByNumber(p.Step)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"progress":  p,
		"step":      def,
		"csrfToken": token,
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "nome and email are required")
		return
	}

	p, err := h.store.Start(r.Context(), sess.ID)
	if err != nil {
		h.logger.Error("start assessment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	p.SetCandidate(strings.TrimSpace(req.Nome), strings.ToLower(strings.TrimSpace(req.Email)))
	if err := h.store.Save(r.Context(), sess.ID, p); err != nil {
		h.logger.Error("save assessment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondProgress(w, p)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "question and a value between 1 and 5 are required")
		return
	}
	h.mutate(w, r, func(p *Progress) error {
		return p.RecordAnswer(req.Question, req.Value)
	})
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "question and option are required")
		return
	}
	h.mutate(w, r, func(p *Progress) error {
		return p.ToggleOption(req.Question, req.Option)
	})
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	p, err := h.store.Load(r.Context(), sess.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !p.CanAdvance() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "answer every question before advancing")
		return
	}

	if err := h.submitStep(r, sess, p); err != nil {
		h.logger.Error("submit step score", slog.Int("step", p.Step), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	p.Advance()
	if err := h.store.Save(r.Context(), sess.ID, p); err != nil {
		h.logger.Error("save assessment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondProgress(w, p)
}

func (h *Handler) handleRetreat(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	p, err := h.store.Load(r.Context(), sess.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p.Retreat()
	if err := h.store.Save(r.Context(), sess.ID, p); err != nil {
		h.logger.Error("save assessment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondProgress(w, p)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.store.Destroy(r.Context(), sess.ID); err != nil {
		h.logger.Error("reset assessment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "assessment reset"})
}

// submitStep records the finished step's answers as a score when the session
// belongs to a logged-in user. A duplicate means the step was already
// submitted, which is fine on a re-advance after a retreat; any other failure
// propagates so the flow stays on the step and the submission can be retried.
func (h *Handler) submitStep(r *http.Request, sess *shared.Session, p *Progress) error {
	if h.scores == nil || sess.User() == "" {
		return nil
	}
	def, ok := StepByNumber(p.Step)
	if !ok {
		return nil
	}
	answers := p.StepAnswers(p.Step)
	if len(answers) == 0 {
		return nil
	}
	userID, err := uuid.Parse(sess.User())
	if err != nil {
		return nil
	}
	_, err = h.scores.SubmitStep(r.Context(), scores.SubmitInput{
		UserID:  userID,
		Step:    p.Step,
		Type:    def.Type,
		Answers: answers,
	})
	if err != nil && !errors.Is(err, httpx.ErrDuplicate) {
		return err
	}
	return nil
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(*Progress) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	p, err := h.store.Load(r.Context(), sess.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := fn(p); err != nil {
		if errors.Is(err, ErrSelectionLimit) {
			httpx.Problem(w, http.StatusBadRequest, "Selection Limit", "at most 5 options can be selected")
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.store.Save(r.Context(), sess.ID, p); err != nil {
		h.logger.Error("save assessment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondProgress(w, p)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*shared.Session, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.ID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Session Required", "no session for assessment flow")
		return nil, false
	}
	return sess, true
}

func (h *Handler) respondProgress(w http.ResponseWriter, p *Progress) {
	def, _ := StepByNumber(p.Step)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"progress": p,
		"step":     def,
	})
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/candidates"
	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/profiles"
	"github.com/spac-assessment/spac/internal/shared"
)

// RegistrationStore persists a new account: profile plus candidate row in a
// single transaction.
type RegistrationStore interface {
	CreateAccount(ctx context.Context, profile *profiles.Profile, candidate *candidates.Candidate) error
}

// Service wraps authentication business rules: registration with the
// password policy, credential checks and login attempt bookkeeping.
type Service struct {
	store    RegistrationStore
	profiles *profiles.Service
	audit    *shared.AuditLogger
	logger   *slog.Logger
	policy   PasswordPolicy
}

// NewService constructs a Service.
func NewService(store RegistrationStore, profileSvc *profiles.Service, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profileSvc,
		audit:    audit,
		logger:   logger,
		policy:   DefaultPasswordPolicy,
	}
}

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Company  string
	Position string
}

// PolicyError reports password policy violations, one entry per rule.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy: " + strings.Join(e.Violations, "; ")
}

// Unwrap lets callers treat policy failures as validation errors.
func (e *PolicyError) Unwrap() error {
	return httpx.ErrValidation
}

// Register creates a new candidate account. The profile and the candidate
// record commit together; a failure in either leaves no half-created account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*profiles.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return nil, fmt.Errorf("%w: email, password and name are required", httpx.ErrValidation)
	}
	if violations := s.policy.Validate(in.Password); len(violations) > 0 {
		return nil, &PolicyError{Violations: violations}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	profile := &profiles.Profile{
		ID:           id,
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		Company:      strings.TrimSpace(in.Company),
		Position:     strings.TrimSpace(in.Position),
		Role:         authz.RoleCandidate,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	candidate := &candidates.Candidate{
		ID:       id,
		Name:     name,
		Email:    email,
		Phone:    profile.Phone,
		Company:  profile.Company,
		Position: profile.Position,
	}

	if err := s.store.CreateAccount(ctx, profile, candidate); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, id.String(), shared.AuditUserRegister, nil)
	return profile, nil
}

// Authenticate validates credentials, enforcing the account lock and keeping
// the attempt counters up to date. Lockout wins over everything: once the
// account is locked, even correct credentials are rejected until the lock
// expires.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*profiles.Profile, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.profiles.CanLogin(profile); err != nil {
		s.recordAudit(ctx, profile.ID.String(), shared.AuditUserLoginFailed, map[string]any{"reason": "locked"})
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		lockedUntil, recErr := s.profiles.RecordLoginFailure(ctx, profile.ID)
		if recErr != nil && s.logger != nil {
			s.logger.Warn("record login failure", slog.Any("error", recErr))
		}
		meta := map[string]any{"reason": "bad_password"}
		if lockedUntil != nil {
			meta["locked_until"] = lockedUntil
		}
		s.recordAudit(ctx, profile.ID.String(), shared.AuditUserLoginFailed, meta)
		return nil, shared.ErrInvalidCredentials
	}

	if err := s.profiles.RecordLoginSuccess(ctx, profile.ID); err != nil && s.logger != nil {
		s.logger.Warn("record login success", slog.Any("error", err))
	}
	s.recordAudit(ctx, profile.ID.String(), shared.AuditUserLogin, nil)
	return profile, nil
}

// Logout records the logout event. Session teardown happens in the handler.
func (s *Service) Logout(ctx context.Context, userID string) {
	s.recordAudit(ctx, userID, shared.AuditUserLogout, nil)
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: actorID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

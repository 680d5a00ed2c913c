package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/spac-assessment/spac/internal/auth"
	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/candidates"
	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/profiles"
	"github.com/spac-assessment/spac/internal/shared"
	_ "github.com/spac-assessment/spac/testing"
)

type memStore struct {
	profiles   []*profiles.Profile
	candidates []*candidates.Candidate
	err        error
}

func (m *memStore) CreateAccount(ctx context.Context, p *profiles.Profile, c *candidates.Candidate) error {
	if m.err != nil {
		return m.err
	}
	m.profiles = append(m.profiles, p)
	m.candidates = append(m.candidates, c)
	return nil
}

type memProfileRepo struct {
	profile  *profiles.Profile
	attempts int
	locked   *time.Time
	resets   int
}

func (m *memProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*profiles.Profile, error) {
	if m.profile == nil {
		return nil, httpx.ErrNotFound
	}
	return m.profile, nil
}

func (m *memProfileRepo) GetByEmail(ctx context.Context, email string) (*profiles.Profile, error) {
	if m.profile == nil || m.profile.Email != email {
		return nil, httpx.ErrNotFound
	}
	return m.profile, nil
}

func (m *memProfileRepo) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.resets++
	m.attempts = 0
	return nil
}

func (m *memProfileRepo) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	m.attempts++
	return m.attempts, nil
}

func (m *memProfileRepo) SetLockedUntil(ctx context.Context, id uuid.UUID, until time.Time) error {
	m.locked = &until
	return nil
}

func newAuthService(store auth.RegistrationStore, repo profiles.RepositoryPort) *auth.Service {
	return auth.NewService(store, profiles.NewService(repo, 5, 30*time.Minute), nil, nil)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func TestRegisterCreatesProfileAndCandidateTogether(t *testing.T) {
	store := &memStore{}
	svc := newAuthService(store, &memProfileRepo{})

	profile, err := svc.Register(context.Background(), auth.RegisterInput{
		Email:    "Maria@Example.com",
		Password: "Str0ng!pass",
		Name:     "Maria Silva",
		Company:  "Acme",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if profile.Email != "maria@example.com" {
		t.Fatalf("email not normalised: %q", profile.Email)
	}
	if profile.Role != authz.RoleCandidate {
		t.Fatalf("new accounts must be candidates, got %s", profile.Role)
	}
	if len(store.profiles) != 1 || len(store.candidates) != 1 {
		t.Fatalf("expected one profile and one candidate, got %d/%d", len(store.profiles), len(store.candidates))
	}
	if store.profiles[0].ID != store.candidates[0].ID {
		t.Fatal("profile and candidate must share an ID")
	}
	if store.profiles[0].PasswordHash == "Str0ng!pass" {
		t.Fatal("password stored in clear")
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc := newAuthService(&memStore{}, &memProfileRepo{})

	_, err := svc.Register(context.Background(), auth.RegisterInput{
		Email:    "user@example.com",
		Password: "short",
		Name:     "User",
	})

	var policyErr *auth.PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("got %v, want PolicyError", err)
	}
	if len(policyErr.Violations) == 0 {
		t.Fatal("expected violations to be reported")
	}
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatal("policy errors must unwrap to validation errors")
	}
}

func TestAuthenticateSuccessResetsCounters(t *testing.T) {
	repo := &memProfileRepo{profile: &profiles.Profile{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: hashOf(t, "Str0ng!pass"),
		IsActive:     true,
	}}
	svc := newAuthService(&memStore{}, repo)

	profile, err := svc.Authenticate(context.Background(), "User@Example.com", "Str0ng!pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if profile == nil || repo.resets != 1 {
		t.Fatalf("expected success bookkeeping, resets=%d", repo.resets)
	}
}

func TestAuthenticateWrongPasswordCountsFailure(t *testing.T) {
	repo := &memProfileRepo{profile: &profiles.Profile{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: hashOf(t, "Str0ng!pass"),
		IsActive:     true,
	}}
	svc := newAuthService(&memStore{}, repo)

	_, err := svc.Authenticate(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	if repo.attempts != 1 {
		t.Fatalf("expected failure to be counted, attempts=%d", repo.attempts)
	}
}

func TestAuthenticateFifthFailureLocksAccount(t *testing.T) {
	repo := &memProfileRepo{profile: &profiles.Profile{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: hashOf(t, "Str0ng!pass"),
		IsActive:     true,
	}}
	svc := newAuthService(&memStore{}, repo)

	for i := 0; i < 5; i++ {
		_, _ = svc.Authenticate(context.Background(), "user@example.com", "wrong")
	}
	if repo.locked == nil {
		t.Fatal("expected account to be locked after five failures")
	}
}

func TestAuthenticateLockedRejectsCorrectPassword(t *testing.T) {
	until := time.Now().Add(20 * time.Minute)
	repo := &memProfileRepo{profile: &profiles.Profile{
		ID:                  uuid.New(),
		Email:               "user@example.com",
		PasswordHash:        hashOf(t, "Str0ng!pass"),
		IsActive:            true,
		FailedLoginAttempts: 5,
		LockedUntil:         &until,
	}}
	svc := newAuthService(&memStore{}, repo)

	_, err := svc.Authenticate(context.Background(), "user@example.com", "Str0ng!pass")
	if !errors.Is(err, shared.ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked: lockout must beat correct credentials", err)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := newAuthService(&memStore{}, &memProfileRepo{})
	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

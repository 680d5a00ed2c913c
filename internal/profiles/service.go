package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/shared"
)

// Defaults for login attempt bookkeeping.
const (
	DefaultMaxFailedLogins = 5
	DefaultLockWindow      = 30 * time.Minute
)

// RepositoryPort defines the persistence surface the service needs.
type RepositoryPort interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
	SetLockedUntil(ctx context.Context, id uuid.UUID, until time.Time) error
}

// Service handles profile lookups and login attempt bookkeeping.
type Service struct {
	repo        RepositoryPort
	maxAttempts int
	lockWindow  time.Duration
	now         func() time.Time
}

// NewService builds a Service. Zero values for maxAttempts/lockWindow fall
// back to the defaults (5 attempts, 30 minute lock).
func NewService(repo RepositoryPort, maxAttempts int, lockWindow time.Duration) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxFailedLogins
	}
	if lockWindow <= 0 {
		lockWindow = DefaultLockWindow
	}
	return &Service{repo: repo, maxAttempts: maxAttempts, lockWindow: lockWindow, now: time.Now}
}

// GetByID returns the profile for the given ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail returns the profile for the given email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.repo.GetByEmail(ctx, email)
}

// LoadSubject implements authz.SubjectLoader.
func (s *Service) LoadSubject(ctx context.Context, userID string) (authz.Subject, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return authz.Subject{}, err
	}
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return authz.Subject{}, err
	}
	return profile.Subject(), nil
}

// CanLogin reports whether the profile may attempt a login right now. A lock
// expires on its own: once the timestamp passes, the account is usable again
// without any administrative step.
func (s *Service) CanLogin(p *Profile) error {
	if p == nil || !p.IsActive {
		return shared.ErrInvalidCredentials
	}
	now := s.now()
	if p.Locked(now) {
		return shared.ErrAccountLocked
	}
	if p.LockedUntil == nil && p.FailedLoginAttempts >= s.maxAttempts {
		return shared.ErrAccountLocked
	}
	return nil
}

// RecordLoginSuccess resets the bookkeeping after a successful authentication.
func (s *Service) RecordLoginSuccess(ctx context.Context, id uuid.UUID) error {
	return s.repo.RecordLoginSuccess(ctx, id, s.now())
}

// RecordLoginFailure increments the failure counter and, once the counter
// reaches the configured threshold, locks the account for the lock window.
// It returns the lock expiry when a lock was applied.
func (s *Service) RecordLoginFailure(ctx context.Context, id uuid.UUID) (*time.Time, error) {
	count, err := s.repo.IncrementFailedAttempts(ctx, id)
	if err != nil {
		return nil, err
	}
	if count < s.maxAttempts {
		return nil, nil
	}
	until := s.now().Add(s.lockWindow)
	if err := s.repo.SetLockedUntil(ctx, id, until); err != nil {
		return nil, err
	}
	return &until, nil
}

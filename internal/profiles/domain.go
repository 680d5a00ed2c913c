package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/spac-assessment/spac/internal/authz"
)

// Profile is a user account as stored in user_profiles. The application owns
// this record; login bookkeeping mutates the attempt counters and lock
// timestamp, everything else changes only through registration and admin
// flows.
type Profile struct {
	ID                  uuid.UUID
	Email               string
	Name                string
	Phone               string
	Company             string
	Position            string
	Role                authz.Role
	PasswordHash        string
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLogin           *time.Time
	LoginCount          int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Locked reports whether the profile is locked at the given instant. An
// expired lock no longer counts.
func (p Profile) Locked(now time.Time) bool {
	return p.LockedUntil != nil && p.LockedUntil.After(now)
}

// Subject converts the profile to its authorization view.
func (p Profile) Subject() authz.Subject {
	subject := authz.Subject{
		ID:     p.ID.String(),
		Role:   p.Role,
		Active: p.IsActive,
	}
	if p.LockedUntil != nil {
		subject.LockedUntil = *p.LockedUntil
	}
	return subject
}

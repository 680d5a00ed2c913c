package authz

import (
	"context"
	"log/slog"
	"time"
)

// State describes the outcome of a guard evaluation. A check starts in
// StateChecking while the subject is being resolved and terminates in one of
// the other states.
type State int

const (
	StateChecking State = iota
	StateAuthorized
	StateDenied
	StateRedirectLogin
)

// Requirement describes what a guarded page demands from the caller. Both
// fields are optional; an empty requirement only demands an authenticated,
// usable subject.
type Requirement struct {
	MinRole Role
	Grant   *Grant
}

// SubjectLoader resolves the authorization view of a user. Implemented by the
// profiles service.
type SubjectLoader interface {
	LoadSubject(ctx context.Context, userID string) (Subject, error)
}

// Guard evaluates page access for a session user. Any failure while loading
// the subject is treated as denial: the guard fails closed.
type Guard struct {
	loader SubjectLoader
	logger *slog.Logger
	now    func() time.Time
}

// NewGuard constructs a Guard.
func NewGuard(loader SubjectLoader, logger *slog.Logger) *Guard {
	return &Guard{loader: loader, logger: logger, now: time.Now}
}

// Check resolves the terminal state for the given session user and
// requirement.
func (g *Guard) Check(ctx context.Context, userID string, req Requirement) State {
	if userID == "" {
		return StateRedirectLogin
	}

	subject, err := g.loader.LoadSubject(ctx, userID)
	if err != nil {
		if g.logger != nil {
			g.logger.Error("guard subject load", slog.String("user_id", userID), slog.Any("error", err))
		}
		return StateDenied
	}

	if !subject.Usable(g.now()) {
		return StateDenied
	}

	if req.Grant != nil && !Allowed(subject.Role, req.Grant.Resource, req.Grant.Action) {
		return StateDenied
	}
	if req.MinRole != "" && !AtLeast(subject.Role, req.MinRole) {
		return StateDenied
	}

	return StateAuthorized
}

// CheckRoute is Check with the requirement taken from the page route table.
func (g *Guard) CheckRoute(ctx context.Context, userID, route string) State {
	if userID == "" {
		return StateRedirectLogin
	}
	grant, ok := routeGrants[route]
	if !ok {
		return g.Check(ctx, userID, Requirement{})
	}
	return g.Check(ctx, userID, Requirement{Grant: &grant})
}

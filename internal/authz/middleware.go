package authz

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/spac-assessment/spac/internal/platform/httpx"
	"github.com/spac-assessment/spac/internal/shared"
)

// Middleware wires grant checks into API routes.
type Middleware struct {
	Loader SubjectLoader
	Logger *slog.Logger
}

// RequireGrant ensures the session user holds the (resource, action) grant.
// Anonymous callers get 401, everyone else without the grant gets 403.
func (m Middleware) RequireGrant(resource string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := m.subject(w, r)
			if !ok {
				return
			}
			if !Allowed(subject.Role, resource, action) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole ensures the session user sits at or above the given role.
func (m Middleware) RequireRole(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := m.subject(w, r)
			if !ok {
				return
			}
			if !AtLeast(subject.Role, min) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) subject(w http.ResponseWriter, r *http.Request) (Subject, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return Subject{}, false
	}
	subject, err := m.Loader.LoadSubject(r.Context(), sess.User())
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz load subject", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "profile unavailable")
		return Subject{}, false
	}
	if !subject.Usable(time.Now()) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "account inactive or locked")
		return Subject{}, false
	}
	return subject, true
}

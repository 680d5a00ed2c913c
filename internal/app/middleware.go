package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/observability"
	"github.com/spac-assessment/spac/internal/shared"
)

// csrfProtected lists path prefixes whose mutating requests ride the browser
// session and therefore must carry the CSRF header. The stateless JSON API
// endpoints (candidates, scores, auth) stay outside it.
var csrfProtected = []string{"/api/v1/assessment"}

func csrfRequired(path string) bool {
	for _, prefix := range csrfProtected {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

type responseWriterWithCommit struct {
	http.ResponseWriter
	sess          *shared.Session
	manager       *shared.SessionManager
	ctx           context.Context
	req           *http.Request
	headerWritten bool
}

func (w *responseWriterWithCommit) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		_ = w.manager.Commit(w.ctx, w.ResponseWriter, w.req, w.sess)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWithCommit) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// MiddlewareStack installs the application middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	sessionMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := cfg.SessionManager.Load(ctx, r)
			if err != nil {
				cfg.Logger.Error("failed to load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			ctx = shared.ContextWithSession(ctx, sess)

			// Wrap to intercept WriteHeader
			wrapped := &responseWriterWithCommit{
				ResponseWriter: w,
				sess:           sess,
				manager:        cfg.SessionManager,
				ctx:            ctx,
				req:            r.WithContext(ctx),
			}

			next.ServeHTTP(wrapped, r.WithContext(ctx))
		})
	}

	csrfMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !csrfRequired(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			token := r.Header.Get(shared.CSRFHeader)
			if err := cfg.CSRFManager.VerifyToken(r.Context(), sess, token); err != nil {
				cfg.Logger.Warn("csrf validation failed", slog.String("path", r.URL.Path))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}
	rateLimit, rateWindow := 60, time.Minute
	if cfg.Config != nil && cfg.Config.APIRateLimit > 0 {
		rateLimit = cfg.Config.APIRateLimit
	}
	if cfg.Config != nil && cfg.Config.APIRateWindow > 0 {
		rateWindow = cfg.Config.APIRateWindow
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		sessionMiddleware,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(rateLimit, rateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)),
		csrfMiddleware,
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}

// gatedPrefixes are page routes that demand an authenticated session.
var gatedPrefixes = []string{"/dashboard", "/form", "/settings", "/admin"}

// authPages bounce already-authenticated users back to the dashboard.
var authPages = map[string]bool{
	"/auth/login":    true,
	"/auth/register": true,
}

// PageGate enforces page-level access: anonymous users hitting a protected
// page are sent to login with the original path preserved, logged-in users
// hitting the auth pages land on the dashboard, and admin pages additionally
// require the admin area grant.
func PageGate(guard *authz.Guard, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			sess := shared.SessionFromContext(r.Context())
			userID := ""
			if sess != nil {
				userID = sess.User()
			}

			if authPages[path] {
				if userID != "" {
					http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !gated(path) {
				next.ServeHTTP(w, r)
				return
			}

			if userID == "" {
				http.Redirect(w, r, "/auth/login?redirect="+url.QueryEscape(path), http.StatusSeeOther)
				return
			}

			switch guard.CheckRoute(r.Context(), userID, routeKey(path)) {
			case authz.StateAuthorized:
				next.ServeHTTP(w, r)
			case authz.StateRedirectLogin:
				http.Redirect(w, r, "/auth/login?redirect="+url.QueryEscape(path), http.StatusSeeOther)
			default:
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			}
		})
	}
}

func gated(path string) bool {
	for _, prefix := range gatedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// routeKey normalises a request path onto the route grant table: exact
// matches pass through, deeper admin paths fall back to the area root.
func routeKey(path string) string {
	if strings.HasPrefix(path, "/admin") {
		if _, ok := authz.RouteRequirement(path); ok {
			return path
		}
		return "/admin"
	}
	if _, ok := authz.RouteRequirement(path); ok {
		return path
	}
	if idx := strings.Index(path[1:], "/"); idx > 0 {
		return path[:idx+1]
	}
	return path
}

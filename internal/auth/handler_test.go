package auth_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spac-assessment/spac/internal/auth"
	"github.com/spac-assessment/spac/internal/profiles"
	"github.com/spac-assessment/spac/internal/shared"
)

func newAuthRouter(t *testing.T, repo profiles.RepositoryPort) (chi.Router, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "spac_session", "secret", time.Hour, false)

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	svc := newAuthService(&memStore{}, repo)
	handler := auth.NewHandler(logger, svc, sessions)

	r := chi.NewRouter()
	r.Route("/api/v1/auth", handler.MountRoutes)
	return r, sessions
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func doJSON(t *testing.T, router chi.Router, sessions *shared.SessionManager, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	sess, err := sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleRegisterReturnsPolicyViolations(t *testing.T) {
	router, sessions := newAuthRouter(t, &memProfileRepo{})

	rr := doJSON(t, router, sessions, http.MethodPost, "/api/v1/auth/register",
		`{"email":"user@example.com","password":"weak","nome":"User"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var body struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Errors) == 0 {
		t.Fatalf("expected policy violations in response, got %s", rr.Body.String())
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	router, sessions := newAuthRouter(t, &memProfileRepo{})

	rr := doJSON(t, router, sessions, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ghost@example.com","password":"whatever"}`)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestHandleLoginLockedAccount(t *testing.T) {
	until := time.Now().Add(20 * time.Minute)
	repo := &memProfileRepo{profile: &profiles.Profile{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: hashOf(t, "Str0ng!pass"),
		IsActive:     true,
		LockedUntil:  &until,
	}}
	router, sessions := newAuthRouter(t, repo)

	rr := doJSON(t, router, sessions, http.MethodPost, "/api/v1/auth/login",
		`{"email":"user@example.com","password":"Str0ng!pass"}`)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for locked account, got %d", rr.Code)
	}
}

func TestHandleLoginSuccessBindsSession(t *testing.T) {
	id := uuid.New()
	repo := &memProfileRepo{profile: &profiles.Profile{
		ID:           id,
		Email:        "user@example.com",
		PasswordHash: hashOf(t, "Str0ng!pass"),
		IsActive:     true,
	}}
	router, sessions := newAuthRouter(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"user@example.com","password":"Str0ng!pass"}`))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	preLoginID := sess.ID

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if sess.User() != id.String() {
		t.Fatalf("session user = %q, want %q", sess.User(), id)
	}
	if sess.ID == preLoginID {
		t.Fatal("login must rotate the session ID")
	}

	var body struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.Email != "user@example.com" {
		t.Fatalf("unexpected user payload: %s", rr.Body.String())
	}
}

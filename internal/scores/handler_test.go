package scores_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spac-assessment/spac/internal/authz"
	"github.com/spac-assessment/spac/internal/scores"
	"github.com/spac-assessment/spac/internal/shared"
)

type roleLoader struct {
	role authz.Role
}

func (l roleLoader) LoadSubject(ctx context.Context, userID string) (authz.Subject, error) {
	return authz.Subject{ID: userID, Role: l.role, Active: true}, nil
}

func newScoresRouter(repo *memScoreRepo, role authz.Role) chi.Router {
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	svc := scores.NewService(repo, &stubCandidates{}, nil, nil, nil)
	handler := scores.NewHandler(logger, svc, authz.Middleware{Loader: roleLoader{role: role}, Logger: logger})

	r := chi.NewRouter()
	r.Route("/api/v1/scores", handler.MountRoutes)
	return r
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func request(router chi.Router, method, path, body, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess := &shared.Session{ID: "sess-1"}
	if userID != "" {
		sess.SetUser(userID)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleSubmitRejectsEmptyAnswers(t *testing.T) {
	router := newScoresRouter(&memScoreRepo{}, authz.RoleCandidate)

	rr := request(router, http.MethodPost, "/api/v1/scores",
		`{"userId":"`+uuid.NewString()+`","step":1,"type":"personality","answers":{}}`, "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleSubmitRecordsScore(t *testing.T) {
	repo := &memScoreRepo{}
	router := newScoresRouter(repo, authz.RoleCandidate)

	rr := request(router, http.MethodPost, "/api/v1/scores",
		`{"userId":"`+uuid.NewString()+`","step":2,"type":"personality","answers":{"1":5,"2":4}}`, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(repo.submitted) != 1 || repo.submitted[0].TotalScore != 9 {
		t.Fatalf("score not recorded as expected: %+v", repo.submitted)
	}
}

func TestSummaryRequiresAuthentication(t *testing.T) {
	router := newScoresRouter(&memScoreRepo{}, authz.RoleCandidate)

	rr := request(router, http.MethodGet, "/api/v1/scores/summary/"+uuid.NewString(), "", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for anonymous summary, got %d", rr.Code)
	}
}

func TestSummaryAllowsSelf(t *testing.T) {
	router := newScoresRouter(&memScoreRepo{}, authz.RoleCandidate)
	userID := uuid.NewString()

	rr := request(router, http.MethodGet, "/api/v1/scores/summary/"+userID, "", userID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for own summary, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSummaryDeniesOtherCandidates(t *testing.T) {
	router := newScoresRouter(&memScoreRepo{}, authz.RoleCandidate)

	rr := request(router, http.MethodGet, "/api/v1/scores/summary/"+uuid.NewString(), "", uuid.NewString())
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for someone else's summary, got %d", rr.Code)
	}
}

func TestSummaryAllowsRHForAnyCandidate(t *testing.T) {
	router := newScoresRouter(&memScoreRepo{}, authz.RoleRH)

	rr := request(router, http.MethodGet, "/api/v1/scores/summary/"+uuid.NewString(), "", uuid.NewString())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for rh reading a candidate summary, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListDeniesCrossUserWithoutGrant(t *testing.T) {
	router := newScoresRouter(&memScoreRepo{}, authz.RoleCandidate)

	target := uuid.NewString()
	rr := request(router, http.MethodGet, "/api/v1/scores?userId="+target, "", uuid.NewString())
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

package shared_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spac-assessment/spac/internal/shared"
	_ "github.com/spac-assessment/spac/testing"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "spac_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	manager := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("user-1")
	sess.Set("csrf_token", "tok")

	rr := httptest.NewRecorder()
	if err := manager.Commit(ctx, rr, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "spac_session" {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	reloaded, err := manager.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.User() != "user-1" || reloaded.Get("csrf_token") != "tok" {
		t.Fatalf("session state lost: user=%q", reloaded.User())
	}
}

func TestSessionDestroyClearsStateAndCookie(t *testing.T) {
	manager := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := manager.Load(ctx, req)
	sess.SetUser("user-1")

	rr := httptest.NewRecorder()
	if err := manager.Commit(ctx, rr, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := rr.Result().Cookies()[0]

	manager.Destroy(sess)
	rr2 := httptest.NewRecorder()
	if err := manager.Commit(ctx, rr2, req, sess); err != nil {
		t.Fatalf("destroy commit: %v", err)
	}
	expired := rr2.Result().Cookies()
	if len(expired) != 1 || expired[0].MaxAge != -1 {
		t.Fatalf("expected expiring cookie, got %v", expired)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	reloaded, err := manager.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.User() != "" {
		t.Fatalf("destroyed session still has user %q", reloaded.User())
	}
}

func TestLoadIgnoresUnknownCookieValue(t *testing.T) {
	manager := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "spac_session", Value: "attacker-chosen-id"})

	sess, err := manager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.ID == "attacker-chosen-id" {
		t.Fatal("client-supplied cookie value must not become the session ID")
	}
}

func TestRenewRotatesSessionID(t *testing.T) {
	manager := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, _ := manager.Load(ctx, req)
	sess.SetUser("user-1")

	rr := httptest.NewRecorder()
	if err := manager.Commit(ctx, rr, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := rr.Result().Cookies()[0]
	oldID := cookie.Value

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	reloaded, err := manager.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	manager.Renew(ctx, reloaded)
	if reloaded.ID == oldID {
		t.Fatal("Renew must assign a fresh session ID")
	}
	rr2 := httptest.NewRecorder()
	if err := manager.Commit(ctx, rr2, next, reloaded); err != nil {
		t.Fatalf("commit renewed: %v", err)
	}

	// The pre-renewal cookie no longer resolves to the session.
	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(cookie)
	fresh, err := manager.Load(ctx, stale)
	if err != nil {
		t.Fatalf("load stale: %v", err)
	}
	if fresh.User() != "" {
		t.Fatalf("stale cookie still resolves to user %q", fresh.User())
	}
}

func TestCSRFTokenVerification(t *testing.T) {
	manager := shared.NewCSRFManager("csrfsecret")
	sess := &shared.Session{ID: "sess-1"}
	ctx := context.Background()

	token, err := manager.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	again, _ := manager.EnsureToken(ctx, sess)
	if again != token {
		t.Fatal("EnsureToken must be stable per session")
	}

	if err := manager.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := manager.VerifyToken(ctx, sess, "forged"); !errors.Is(err, shared.ErrCSRFTokenMismatch) {
		t.Fatalf("got %v, want ErrCSRFTokenMismatch", err)
	}
	if err := manager.VerifyToken(ctx, sess, ""); !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("got %v, want ErrCSRFTokenMissing", err)
	}
}

func TestPaginationDerivesPages(t *testing.T) {
	p := shared.NewPagination(0, 0, 45)
	if p.Page != 1 || p.Limit != 10 {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if p.TotalPages != 5 {
		t.Fatalf("total pages = %d, want 5", p.TotalPages)
	}

	p = shared.NewPagination(3, 10, 45)
	if p.Offset() != 20 {
		t.Fatalf("offset = %d, want 20", p.Offset())
	}
}

package assessment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spac-assessment/spac/internal/assessment"
	"github.com/spac-assessment/spac/internal/platform/httpx"
)

func newStore(t *testing.T) *assessment.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return assessment.NewStore(client, time.Hour)
}

func TestStoreRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	p, err := store.Start(ctx, "sess-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	p.SetCandidate("João Costa", "joao@example.com")
	if err := p.RecordAnswer(101, 4); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Save(ctx, "sess-1", p); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Candidate.Name != "João Costa" || loaded.Answers[101] != 4 {
		t.Fatalf("unexpected progress: %+v", loaded)
	}
}

func TestStoreLoadMissingIsNotFound(t *testing.T) {
	store := newStore(t)
	if _, err := store.Load(context.Background(), "absent"); !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a, _ := store.Start(ctx, "sess-a")
	if err := a.RecordAnswer(101, 5); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Save(ctx, "sess-a", a); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Start(ctx, "sess-b"); err != nil {
		t.Fatalf("start b: %v", err)
	}

	b, err := store.Load(ctx, "sess-b")
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if len(b.Answers) != 0 {
		t.Fatalf("session b sees session a's answers: %v", b.Answers)
	}
}

func TestStoreDestroyEndsFlow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if _, err := store.Start(ctx, "sess-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.Destroy(ctx, "sess-1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := store.Load(ctx, "sess-1"); !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after destroy", err)
	}
}

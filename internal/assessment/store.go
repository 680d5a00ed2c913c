package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spac-assessment/spac/internal/platform/httpx"
)

const progressKeyPrefix = "assessment:progress:"

// Store keeps in-flight questionnaire progress in Redis, keyed by session ID.
// Progress expires with the session TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore constructs a Store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// Start creates fresh progress for the session, replacing any existing flow.
func (s *Store) Start(ctx context.Context, sessionID string) (*Progress, error) {
	p := NewProgress(s.now().UTC())
	if err := s.Save(ctx, sessionID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Load fetches the session's progress. Missing progress maps to ErrNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (*Progress, error) {
	raw, err := s.client.Get(ctx, progressKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	var p Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save persists the progress and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sessionID string, p *Progress) error {
	p.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, progressKeyPrefix+sessionID, raw, s.ttl).Err()
}

// Destroy drops the session's progress.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx, progressKeyPrefix+sessionID).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

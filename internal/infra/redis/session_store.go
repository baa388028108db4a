package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-assessment-service/internal/domain"
)

// SessionStore persists assessment sessions as JSON with a sliding TTL, so
// any instance can serve the next question of a running assessment.
// Abandoned sessions expire instead of accumulating.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Put(ctx context.Context, state *domain.SessionState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(state.ID), encoded, s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var state domain.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func sessionKey(sessionID string) string {
	return "assessment:session:" + sessionID
}

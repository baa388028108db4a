package memory

import (
	"context"
	"sync"

	"adaptive-assessment-service/internal/domain"
)

// SessionStore is an in-memory implementation of assessment.SessionStore.
// Sessions are processed one request at a time per the assessment model, so
// the map lock is the only coordination needed.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.SessionState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.SessionState)}
}

func (s *SessionStore) Put(_ context.Context, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.ID] = state
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state, nil
}

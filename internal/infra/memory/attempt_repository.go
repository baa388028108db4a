package memory

import (
	"context"
	"sync"

	"adaptive-assessment-service/internal/domain"
)

// AttemptRepository stores practice attempt history per (student, concept).
type AttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string][]domain.Attempt
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{attempts: make(map[string][]domain.Attempt)}
}

// AddAttempt appends one attempt; history stays chronological because
// attempts arrive in order.
func (r *AttemptRepository) AddAttempt(_ context.Context, studentID, conceptID string, attempt domain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attemptKey(studentID, conceptID)
	r.attempts[key] = append(r.attempts[key], attempt)
	return nil
}

func (r *AttemptRepository) ListAttempts(_ context.Context, studentID, conceptID string) ([]domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.attempts[attemptKey(studentID, conceptID)]
	out := make([]domain.Attempt, len(history))
	copy(out, history)
	return out, nil
}

func attemptKey(studentID, conceptID string) string {
	return studentID + ":" + conceptID
}

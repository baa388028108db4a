package memory

import (
	"context"
	"sync"

	"adaptive-assessment-service/internal/domain"
)

// RewardLedger is an in-memory implementation of rewards.Ledger with
// idempotent milestone grants.
type RewardLedger struct {
	mu      sync.Mutex
	granted map[string]domain.Reward
	xp      map[string]int
}

func NewRewardLedger() *RewardLedger {
	return &RewardLedger{
		granted: make(map[string]domain.Reward),
		xp:      make(map[string]int),
	}
}

// GrantOnce records the reward unless the (student, milestone) pair already
// holds one; returns whether this call granted it.
func (l *RewardLedger) GrantOnce(_ context.Context, reward domain.Reward) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := reward.StudentID + ":" + reward.MilestoneID
	if _, exists := l.granted[key]; exists {
		return false, nil
	}
	l.granted[key] = reward
	return true, nil
}

func (l *RewardLedger) AddXP(_ context.Context, studentID string, xp int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.xp[studentID] += xp
	return l.xp[studentID], nil
}

func (l *RewardLedger) TotalXP(_ context.Context, studentID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.xp[studentID], nil
}

// Rewards returns the student's granted rewards (snapshot for tests/UI).
func (l *RewardLedger) Rewards(_ context.Context, studentID string) ([]domain.Reward, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Reward
	for _, r := range l.granted {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

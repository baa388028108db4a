package mastery

import (
	"context"
	"errors"
	"testing"
	"time"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/infra/memory"
	"adaptive-assessment-service/internal/logger"
)

type mapScoreCache struct {
	scores map[string]domain.MasteryScore
	gets   int
	sets   int
	fail   bool
}

func newMapScoreCache() *mapScoreCache {
	return &mapScoreCache{scores: make(map[string]domain.MasteryScore)}
}

func (c *mapScoreCache) GetScore(_ context.Context, studentID, conceptID string) (domain.MasteryScore, bool, error) {
	c.gets++
	if c.fail {
		return domain.MasteryScore{}, false, errors.New("cache down")
	}
	score, ok := c.scores[studentID+":"+conceptID]
	return score, ok, nil
}

func (c *mapScoreCache) SetScore(_ context.Context, studentID, conceptID string, score domain.MasteryScore) error {
	c.sets++
	if c.fail {
		return errors.New("cache down")
	}
	c.scores[studentID+":"+conceptID] = score
	return nil
}

func seededAttempts(t *testing.T, repo *memory.AttemptRepository, studentID, conceptID string, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := repo.AddAttempt(context.Background(), studentID, conceptID, domain.Attempt{
			IsCorrect:   true,
			TimeSeconds: 60,
			AttemptedAt: at,
		})
		if err != nil {
			t.Fatalf("AddAttempt: %v", err)
		}
	}
}

func TestConceptMasteryComputesAndCaches(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	repo := memory.NewAttemptRepository()
	cache := newMapScoreCache()
	svc := NewService(repo, cache, NewCalculatorWithClock(func() time.Time { return now }), logger.NewNop())

	concept := domain.ConceptNode{ID: "c-offer", AvgCompletionSeconds: 60}
	seededAttempts(t, repo, "stu1", "c-offer", 5, now)

	first, err := svc.ConceptMastery(context.Background(), "stu1", concept)
	if err != nil {
		t.Fatalf("ConceptMastery: %v", err)
	}
	if first.Overall != 1.0 || first.Level != domain.LevelMastery {
		t.Fatalf("score = %+v, want perfect mastery", first)
	}
	if cache.sets != 1 {
		t.Fatalf("cache writes = %d, want 1", cache.sets)
	}

	second, err := svc.ConceptMastery(context.Background(), "stu1", concept)
	if err != nil {
		t.Fatalf("second ConceptMastery: %v", err)
	}
	if second != first {
		t.Fatalf("cached score %+v differs from computed %+v", second, first)
	}
	if cache.sets != 1 {
		t.Fatalf("cache rewritten on hit: sets=%d", cache.sets)
	}
}

func TestConceptMasterySurvivesCacheFailure(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	repo := memory.NewAttemptRepository()
	cache := newMapScoreCache()
	cache.fail = true
	svc := NewService(repo, cache, NewCalculatorWithClock(func() time.Time { return now }), logger.NewNop())

	concept := domain.ConceptNode{ID: "c-offer", AvgCompletionSeconds: 60}
	seededAttempts(t, repo, "stu1", "c-offer", 3, now)

	score, err := svc.ConceptMastery(context.Background(), "stu1", concept)
	if err != nil {
		t.Fatalf("ConceptMastery with failing cache: %v", err)
	}
	if score.Level != domain.LevelMastery {
		t.Fatalf("score = %+v, want mastery despite cache failure", score)
	}
}

func TestConceptMasteryWithoutCache(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	repo := memory.NewAttemptRepository()
	svc := NewService(repo, nil, NewCalculatorWithClock(func() time.Time { return now }), logger.NewNop())

	score, err := svc.ConceptMastery(context.Background(), "stu1", domain.ConceptNode{ID: "c-new"})
	if err != nil {
		t.Fatalf("ConceptMastery: %v", err)
	}
	if score.Level != domain.LevelNovice || score.Overall != 0 {
		t.Fatalf("empty history score = %+v, want zero NOVICE", score)
	}
}

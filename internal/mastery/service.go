package mastery

import (
	"context"
	"fmt"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/logger"
)

// AttemptRepository loads the chronologically ordered attempt history for
// one (student, concept) pair.
type AttemptRepository interface {
	ListAttempts(ctx context.Context, studentID, conceptID string) ([]domain.Attempt, error)
}

// ScoreCache caches derived mastery scores. Scores are recomputed on cache
// miss; the cache is never the source of truth.
type ScoreCache interface {
	GetScore(ctx context.Context, studentID, conceptID string) (domain.MasteryScore, bool, error)
	SetScore(ctx context.Context, studentID, conceptID string, score domain.MasteryScore) error
}

// Service computes (and caches) concept mastery for students.
type Service struct {
	attempts AttemptRepository
	cache    ScoreCache
	calc     *Calculator
	log      *logger.Logger
}

// NewService builds a mastery service; cache may be nil to disable caching.
func NewService(attempts AttemptRepository, cache ScoreCache, calc *Calculator, log *logger.Logger) *Service {
	return &Service{attempts: attempts, cache: cache, calc: calc, log: log}
}

// ConceptMastery returns the mastery score for one (student, concept) pair,
// computing it from the attempt history on cache miss. An empty history is
// a legitimate all-zero NOVICE result.
func (s *Service) ConceptMastery(ctx context.Context, studentID string, concept domain.ConceptNode) (domain.MasteryScore, error) {
	if s.cache != nil {
		if score, ok, err := s.cache.GetScore(ctx, studentID, concept.ID); err != nil {
			s.log.Warn("mastery cache read failed", "concept_id", concept.ID, "error", err)
		} else if ok {
			return score, nil
		}
	}

	attempts, err := s.attempts.ListAttempts(ctx, studentID, concept.ID)
	if err != nil {
		return domain.MasteryScore{}, fmt.Errorf("list attempts: %w", err)
	}

	score := s.calc.Calculate(attempts, concept.AvgCompletionSeconds)

	if s.cache != nil {
		if err := s.cache.SetScore(ctx, studentID, concept.ID, score); err != nil {
			s.log.Warn("mastery cache write failed", "concept_id", concept.ID, "error", err)
		}
	}
	return score, nil
}

// Package rewards evaluates milestone triggers and accrues XP for
// completed path steps. Granting is idempotent: the surrounding system may
// retry a milestone check after a partial failure, and a badge awarded
// twice would corrupt the reward ledger.
package rewards

import (
	"context"
	"math"
	"time"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/logger"
)

// XP bases per completed step type.
const (
	xpConceptStudy = 10
	xpPracticeSet  = 25
	xpCheckpoint   = 50
	xpAssessment   = 100

	// Accuracy bonuses on step completion.
	bonusThresholdHigh = 0.95
	bonusHigh          = 1.5
	bonusThresholdMid  = 0.85
	bonusMid           = 1.25

	xpPerLevel = 1000
)

// Ledger is the persistence boundary for granted rewards and XP totals.
// GrantOnce must be atomic per (student, milestone): it returns false when
// the milestone was already granted, making retries harmless.
type Ledger interface {
	GrantOnce(ctx context.Context, reward domain.Reward) (bool, error)
	AddXP(ctx context.Context, studentID string, xp int) (int, error)
	TotalXP(ctx context.Context, studentID string) (int, error)
}

// StepAward reports the XP accrued for one completed step.
type StepAward struct {
	XPAwarded int `json:"xpAwarded"`
	TotalXP   int `json:"totalXp"`
	Level     int `json:"level"`
}

// Engine wires trigger evaluation to a reward ledger.
type Engine struct {
	ledger Ledger
	log    *logger.Logger
	now    func() time.Time
}

func NewEngine(ledger Ledger, log *logger.Logger) *Engine {
	return &Engine{ledger: ledger, log: log, now: time.Now}
}

// NewEngineWithClock is test-only for deterministic grant timestamps.
func NewEngineWithClock(ledger Ledger, log *logger.Logger, now func() time.Time) *Engine {
	return &Engine{ledger: ledger, log: log, now: now}
}

// CheckAndUnlockMilestones grants every milestone whose required steps are
// all complete and returns the rewards granted by this call. Milestones
// already granted earlier are skipped by the ledger, so calling twice with
// no new completions grants nothing.
func (e *Engine) CheckAndUnlockMilestones(ctx context.Context, studentID string, path domain.LearningPath, completedSteps map[int]bool) ([]domain.Reward, error) {
	var granted []domain.Reward
	for _, milestone := range path.Milestones {
		if !allComplete(milestone.RequiredSteps, completedSteps) {
			continue
		}
		reward := domain.Reward{
			StudentID:   studentID,
			MilestoneID: milestone.ID,
			Type:        milestone.Reward,
			GrantedAt:   e.now(),
		}
		isNew, err := e.ledger.GrantOnce(ctx, reward)
		if err != nil {
			return granted, err
		}
		if !isNew {
			continue
		}
		e.log.Info("milestone unlocked",
			"student_id", studentID,
			"milestone_id", milestone.ID,
			"reward", string(milestone.Reward),
		)
		granted = append(granted, reward)
	}
	return granted, nil
}

// AwardStepCompletion accrues XP for one completed step: a fixed base per
// step type multiplied by the accuracy bonus.
func (e *Engine) AwardStepCompletion(ctx context.Context, studentID string, step domain.PathStep, accuracy float64) (StepAward, error) {
	xp := int(math.Round(float64(BaseXP(step.Type)) * accuracyBonus(accuracy)))
	total, err := e.ledger.AddXP(ctx, studentID, xp)
	if err != nil {
		return StepAward{}, err
	}
	return StepAward{XPAwarded: xp, TotalXP: total, Level: Level(total)}, nil
}

// BaseXP returns the per-step-type XP base.
func BaseXP(t domain.StepType) int {
	switch t {
	case domain.StepPracticeSet:
		return xpPracticeSet
	case domain.StepCheckpoint:
		return xpCheckpoint
	case domain.StepAssessment:
		return xpAssessment
	default:
		return xpConceptStudy
	}
}

// Level derives the student level from total XP.
func Level(totalXP int) int {
	return totalXP/xpPerLevel + 1
}

func accuracyBonus(accuracy float64) float64 {
	switch {
	case accuracy >= bonusThresholdHigh:
		return bonusHigh
	case accuracy >= bonusThresholdMid:
		return bonusMid
	default:
		return 1.0
	}
}

func allComplete(required []int, completed map[int]bool) bool {
	if len(required) == 0 {
		return false
	}
	for _, idx := range required {
		if !completed[idx] {
			return false
		}
	}
	return true
}

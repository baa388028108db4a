// Package mastery computes the five-factor concept mastery score from a
// student's chronologically ordered attempt history.
package mastery

import (
	"math"
	"time"

	"adaptive-assessment-service/internal/domain"
)

// Component weights for the overall score.
const (
	weightRecent      = 0.40
	weightOverall     = 0.25
	weightTime        = 0.15
	weightConsistency = 0.10
	weightRetention   = 0.10

	// recentWindow bounds the exponentially weighted accuracy and the
	// consistency calculation to the last attempts.
	recentWindow = 10
	recencyDecay = 0.9

	// retentionHalfLifeDays controls the exponential forgetting curve.
	retentionHalfLifeDays = 14.0
)

// Calculator scores concept mastery. The clock is injectable so retention
// decay is deterministic in tests.
type Calculator struct {
	now func() time.Time
}

func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// NewCalculatorWithClock is test-only for deterministic retention decay.
func NewCalculatorWithClock(now func() time.Time) *Calculator {
	return &Calculator{now: now}
}

// Calculate scores one (student, concept) pair from its attempt history,
// oldest first. conceptAvgSeconds is the concept's configured average
// completion time; zero disables the time-efficiency penalty. An empty
// history yields an all-zero NOVICE score rather than an error: mastery is
// well defined, and minimal, for unattempted concepts.
func (c *Calculator) Calculate(attempts []domain.Attempt, conceptAvgSeconds float64) domain.MasteryScore {
	if len(attempts) == 0 {
		return domain.MasteryScore{Level: domain.LevelNovice}
	}

	score := domain.MasteryScore{
		RecentAccuracy:  recentAccuracy(attempts),
		OverallAccuracy: overallAccuracy(attempts),
		TimeEfficiency:  timeEfficiency(attempts, conceptAvgSeconds),
		Consistency:     consistency(attempts),
		Retention:       c.retention(attempts),
	}
	score.Overall = weightRecent*score.RecentAccuracy +
		weightOverall*score.OverallAccuracy +
		weightTime*score.TimeEfficiency +
		weightConsistency*score.Consistency +
		weightRetention*score.Retention
	score.Level = levelFor(score.Overall)
	return score
}

func levelFor(overall float64) domain.MasteryLevel {
	switch {
	case overall >= 0.85:
		return domain.LevelMastery
	case overall >= 0.70:
		return domain.LevelProficient
	case overall >= 0.40:
		return domain.LevelDeveloping
	default:
		return domain.LevelNovice
	}
}

// recentAccuracy is the exponentially weighted accuracy over the last
// attempts, most recent weighted highest.
func recentAccuracy(attempts []domain.Attempt) float64 {
	recent := lastN(attempts, recentWindow)
	n := len(recent)
	var weighted, totalWeight float64
	for i, a := range recent {
		w := math.Pow(recencyDecay, float64(n-1-i))
		totalWeight += w
		if a.IsCorrect {
			weighted += w
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func overallAccuracy(attempts []domain.Attempt) float64 {
	correct := 0
	for _, a := range attempts {
		if a.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(attempts))
}

// timeEfficiency compares the student's average time against the concept's
// configured average, capped at 1.0. Missing time data is not penalized.
func timeEfficiency(attempts []domain.Attempt, conceptAvgSeconds float64) float64 {
	if conceptAvgSeconds <= 0 {
		return 1.0
	}
	var total float64
	var counted int
	for _, a := range attempts {
		if a.TimeSeconds > 0 {
			total += a.TimeSeconds
			counted++
		}
	}
	if counted == 0 {
		return 1.0
	}
	studentAvg := total / float64(counted)
	if studentAvg <= 0 {
		return 1.0
	}
	return math.Min(1.0, conceptAvgSeconds/studentAvg)
}

// consistency maps the stddev of the recent 0/1 correctness series onto
// [0,1]: zero variance is 1.0, the maximal 0.5 stddev is 0.
func consistency(attempts []domain.Attempt) float64 {
	recent := lastN(attempts, recentWindow)
	n := float64(len(recent))
	var sum float64
	for _, a := range recent {
		if a.IsCorrect {
			sum++
		}
	}
	mean := sum / n
	var variance float64
	for _, a := range recent {
		v := 0.0
		if a.IsCorrect {
			v = 1.0
		}
		variance += (v - mean) * (v - mean)
	}
	variance /= n
	return math.Max(0, 1-math.Sqrt(variance)/0.5)
}

// retention decays exponentially with days since the last attempt.
func (c *Calculator) retention(attempts []domain.Attempt) float64 {
	last := attempts[len(attempts)-1].AttemptedAt
	if last.IsZero() {
		return 1.0
	}
	days := c.now().Sub(last).Hours() / 24
	if days <= 0 {
		return 1.0
	}
	return math.Exp(-days / retentionHalfLifeDays)
}

func lastN(attempts []domain.Attempt, n int) []domain.Attempt {
	if len(attempts) <= n {
		return attempts
	}
	return attempts[len(attempts)-n:]
}

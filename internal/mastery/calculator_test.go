package mastery

import (
	"math"
	"testing"
	"time"

	"adaptive-assessment-service/internal/domain"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func calculator() *Calculator {
	return NewCalculatorWithClock(func() time.Time { return fixedNow })
}

func attemptsAt(correct []bool, secondsEach float64, last time.Time) []domain.Attempt {
	out := make([]domain.Attempt, len(correct))
	for i, c := range correct {
		out[i] = domain.Attempt{
			IsCorrect:   c,
			TimeSeconds: secondsEach,
			AttemptedAt: last.Add(-time.Duration(len(correct)-1-i) * 24 * time.Hour),
		}
	}
	return out
}

func TestEmptyHistoryIsNovice(t *testing.T) {
	score := calculator().Calculate(nil, 60)
	if score.Overall != 0 || score.Level != domain.LevelNovice {
		t.Fatalf("expected all-zero NOVICE, got %+v", score)
	}
}

func TestPerfectRecentHistory(t *testing.T) {
	attempts := attemptsAt([]bool{true, true, true, true, true}, 30, fixedNow)
	score := calculator().Calculate(attempts, 60)

	if score.RecentAccuracy != 1.0 || score.OverallAccuracy != 1.0 {
		t.Fatalf("expected perfect accuracy components, got %+v", score)
	}
	if score.TimeEfficiency != 1.0 {
		t.Fatalf("faster than concept average must cap at 1.0, got %v", score.TimeEfficiency)
	}
	if score.Consistency != 1.0 {
		t.Fatalf("zero variance must give consistency 1.0, got %v", score.Consistency)
	}
	if score.Retention != 1.0 {
		t.Fatalf("same-day attempt must not decay, got %v", score.Retention)
	}
	if score.Overall != 1.0 || score.Level != domain.LevelMastery {
		t.Fatalf("expected full mastery, got %+v", score)
	}
}

func TestRecentAccuracyWeightsLatestHighest(t *testing.T) {
	calc := calculator()
	// Same counts, different order: late successes must beat early ones.
	lateWins := calc.Calculate(attemptsAt([]bool{false, false, true, true}, 0, fixedNow), 0)
	earlyWins := calc.Calculate(attemptsAt([]bool{true, true, false, false}, 0, fixedNow), 0)
	if lateWins.RecentAccuracy <= earlyWins.RecentAccuracy {
		t.Fatalf("recent successes should weigh more: late=%v early=%v",
			lateWins.RecentAccuracy, earlyWins.RecentAccuracy)
	}
}

func TestTimeEfficiencyPenalizesSlowness(t *testing.T) {
	calc := calculator()
	slow := calc.Calculate(attemptsAt([]bool{true, true}, 120, fixedNow), 60)
	if math.Abs(slow.TimeEfficiency-0.5) > 1e-9 {
		t.Fatalf("twice as slow should score 0.5, got %v", slow.TimeEfficiency)
	}

	// No time data defaults to 1.0.
	noTimes := calc.Calculate(attemptsAt([]bool{true, true}, 0, fixedNow), 60)
	if noTimes.TimeEfficiency != 1.0 {
		t.Fatalf("missing time data must not be penalized, got %v", noTimes.TimeEfficiency)
	}
}

func TestConsistencyAlternatingIsZero(t *testing.T) {
	calc := calculator()
	alternating := calc.Calculate(attemptsAt([]bool{true, false, true, false, true, false, true, false, true, false}, 0, fixedNow), 0)
	if alternating.Consistency > 1e-9 {
		t.Fatalf("maximal variance should zero consistency, got %v", alternating.Consistency)
	}
}

func TestRetentionDecay(t *testing.T) {
	calc := calculator()
	twoWeeksAgo := fixedNow.Add(-14 * 24 * time.Hour)
	score := calc.Calculate(attemptsAt([]bool{true}, 0, twoWeeksAgo), 0)
	want := math.Exp(-1) // 14 days at a 14-day decay constant
	if math.Abs(score.Retention-want) > 1e-9 {
		t.Fatalf("expected retention %v after 14 days, got %v", want, score.Retention)
	}
}

func TestAllComponentsBounded(t *testing.T) {
	calc := calculator()
	histories := [][]bool{
		{true},
		{false},
		{true, false, false, true, true, true, false, true, true, false, true, true},
		{false, false, false, false, false, false, false, false, false, false},
	}
	for _, correctness := range histories {
		score := calc.Calculate(attemptsAt(correctness, 45, fixedNow.Add(-72*time.Hour)), 60)
		for name, v := range map[string]float64{
			"recent":      score.RecentAccuracy,
			"overall":     score.OverallAccuracy,
			"time":        score.TimeEfficiency,
			"consistency": score.Consistency,
			"retention":   score.Retention,
			"total":       score.Overall,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("component %s out of bounds: %v (history %v)", name, v, correctness)
			}
		}
	}
}

func TestLevelBuckets(t *testing.T) {
	cases := []struct {
		overall float64
		want    domain.MasteryLevel
	}{
		{0.9, domain.LevelMastery},
		{0.85, domain.LevelMastery},
		{0.75, domain.LevelProficient},
		{0.5, domain.LevelDeveloping},
		{0.2, domain.LevelNovice},
	}
	for _, tc := range cases {
		if got := levelFor(tc.overall); got != tc.want {
			t.Fatalf("levelFor(%v) = %s, want %s", tc.overall, got, tc.want)
		}
	}
}

// Package selection picks the next assessment item by maximum adjusted
// information: raw Fisher information at the current ability estimate,
// boosted for under-covered topics and penalized for over-exposed items.
package selection

import (
	"math/rand"
	"time"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/irt"
)

const (
	coverageBoost = 2.0

	// Exposure penalties keep heavily used items from dominating selection
	// across the pool.
	heavyExposureRate    = 0.20
	heavyExposurePenalty = 0.5
	highExposureRate     = 0.15
	highExposurePenalty  = 0.75
)

// Request carries everything one selection decision needs. Candidates must
// already exclude items administered earlier in the session.
type Request struct {
	Candidates       []domain.Item
	Theta            float64
	Coverage         domain.CoverageState
	TopicMinimums    map[string]int
	ExposureControl  bool
	TotalAssessments int
	// Randomness in [0,1] perturbs scores by up to +/- randomness/2
	// multiplicatively so item sequences are not gameable.
	Randomness float64
}

// ScoredItem pairs a candidate with its adjusted score (debug/analysis view).
type ScoredItem struct {
	Item  domain.Item
	Score float64
}

// Selector implements maximum-information item selection with coverage and
// exposure adjustments.
type Selector struct {
	rnd *rand.Rand
}

func NewSelector() *Selector {
	return NewSelectorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSelectorWithSource allows deterministic selection in tests.
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rnd: rand.New(src)}
}

// NextItem returns the candidate with the highest adjusted score, ties
// broken by pool order. Returns nil when the pool is empty; callers must
// treat that as a hard stop, not a retry.
func (s *Selector) NextItem(req Request) *domain.Item {
	var best *domain.Item
	bestScore := 0.0
	for i := range req.Candidates {
		score := s.score(req, req.Candidates[i])
		if best == nil || score > bestScore {
			best = &req.Candidates[i]
			bestScore = score
		}
	}
	return best
}

// Scores returns every candidate's adjusted score in pool order.
func (s *Selector) Scores(req Request) []ScoredItem {
	out := make([]ScoredItem, 0, len(req.Candidates))
	for _, item := range req.Candidates {
		out = append(out, ScoredItem{Item: item, Score: s.score(req, item)})
	}
	return out
}

func (s *Selector) score(req Request, item domain.Item) float64 {
	score := irt.ItemInformation(req.Theta, item.EffectiveParams())

	if minimum, ok := req.TopicMinimums[item.Topic]; ok && req.Coverage.ByTopic[item.Topic] < minimum {
		score *= coverageBoost
	}

	if req.ExposureControl && req.TotalAssessments > 0 {
		rate := float64(item.TimesUsed) / float64(req.TotalAssessments)
		switch {
		case rate > heavyExposureRate:
			score *= heavyExposurePenalty
		case rate > highExposureRate:
			score *= highExposurePenalty
		}
	}

	if req.Randomness > 0 {
		score *= 1 + (s.rnd.Float64()-0.5)*req.Randomness
	}
	return score
}

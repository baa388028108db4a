package memory

import (
	"context"
	"sync"
)

// PracticeItemFinder is a static stand-in for the external item-similarity
// search: ranked item ids per concept, truncated to the requested limit.
type PracticeItemFinder struct {
	mu        sync.RWMutex
	byConcept map[string][]string
}

func NewPracticeItemFinder(itemsByConcept map[string][]string) *PracticeItemFinder {
	return &PracticeItemFinder{byConcept: itemsByConcept}
}

func (f *PracticeItemFinder) FindItemsForConcept(_ context.Context, conceptID string, limit int) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ranked := f.byConcept[conceptID]
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	copy(out, ranked)
	return out, nil
}

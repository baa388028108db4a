// Package memory provides in-memory implementations of the service's
// repository interfaces, used in tests and when no external infrastructure
// is configured.
package memory

import (
	"context"
	"sync"

	"adaptive-assessment-service/internal/domain"
)

// ItemRepository is an in-memory item bank with exposure counters.
type ItemRepository struct {
	mu          sync.RWMutex
	items       map[string]domain.Item
	order       []string
	assessments map[string]int
}

func NewItemRepository(items []domain.Item) *ItemRepository {
	r := &ItemRepository{
		items:       make(map[string]domain.Item, len(items)),
		assessments: make(map[string]int),
	}
	for _, item := range items {
		r.items[item.ID] = item
		r.order = append(r.order, item.ID)
	}
	return r
}

// ActiveItems returns active items for the jurisdiction minus the excluded
// set, in insertion order so selection tie-breaks stay deterministic.
func (r *ItemRepository) ActiveItems(_ context.Context, jurisdiction string, exclude map[string]struct{}) ([]domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Item
	for _, id := range r.order {
		item := r.items[id]
		if !item.Active || item.Jurisdiction != jurisdiction {
			continue
		}
		if _, used := exclude[item.ID]; used {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *ItemRepository) GetItem(_ context.Context, itemID string) (domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[itemID]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (r *ItemRepository) RecordItemUse(_ context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	item.TimesUsed++
	r.items[itemID] = item
	return nil
}

func (r *ItemRepository) RecordAssessmentStart(_ context.Context, jurisdiction string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assessments[jurisdiction]++
	return nil
}

func (r *ItemRepository) TotalAssessments(_ context.Context, jurisdiction string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assessments[jurisdiction], nil
}

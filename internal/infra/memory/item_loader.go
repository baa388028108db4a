package memory

import (
	"context"

	"adaptive-assessment-service/internal/domain"
)

// ItemLoader is the cache-fill abstraction the Redis layer depends on.
type ItemLoader interface {
	LoadItems(ctx context.Context, jurisdiction string) ([]domain.Item, error)
	LoadItem(ctx context.Context, itemID string) (domain.Item, error)
}

// StaticItemLoader serves a fixed item set, for tests and the no-infra mode.
type StaticItemLoader struct {
	items []domain.Item
}

func NewStaticItemLoader(items []domain.Item) *StaticItemLoader {
	return &StaticItemLoader{items: items}
}

func (l *StaticItemLoader) LoadItems(_ context.Context, jurisdiction string) ([]domain.Item, error) {
	var out []domain.Item
	for _, item := range l.items {
		if item.Jurisdiction == jurisdiction {
			out = append(out, item)
		}
	}
	return out, nil
}

func (l *StaticItemLoader) LoadItem(_ context.Context, itemID string) (domain.Item, error) {
	for _, item := range l.items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return domain.Item{}, domain.ErrItemNotFound
}

// Package redis backs the hot-path repositories with Redis: the item bank
// cache, exposure counters, session state, mastery scores and the reward
// ledger.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"adaptive-assessment-service/internal/domain"
)

// ItemLoader fetches item content from the backing store on cache miss.
type ItemLoader interface {
	LoadItems(ctx context.Context, jurisdiction string) ([]domain.Item, error)
	LoadItem(ctx context.Context, itemID string) (domain.Item, error)
}

// ItemRepository caches the per-jurisdiction item bank in Redis (hash per
// jurisdiction, one JSON field per item) and keeps the exposure counters
// there so every instance penalizes over-used items against the same
// numbers.
//
//	HSET items:{jurisdiction} {itemID} {json}
//	SET  item:{itemID} {json}
//	INCR exposure:item:{itemID}
//	INCR exposure:assessments:{jurisdiction}
type ItemRepository struct {
	client *redis.Client
	loader ItemLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewItemRepository(client *redis.Client, loader ItemLoader, ttl time.Duration) *ItemRepository {
	return &ItemRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ActiveItems returns active candidates minus the excluded set, with
// TimesUsed overlaid from the shared exposure counters.
func (r *ItemRepository) ActiveItems(ctx context.Context, jurisdiction string, exclude map[string]struct{}) ([]domain.Item, error) {
	items, err := r.jurisdictionItems(ctx, jurisdiction)
	if err != nil {
		return nil, err
	}

	var out []domain.Item
	for _, item := range items {
		if !item.Active {
			continue
		}
		if _, used := exclude[item.ID]; used {
			continue
		}
		out = append(out, item)
	}
	if err := r.overlayUsage(ctx, out); err != nil {
		// Stale usage only weakens the exposure penalty.
		return out, nil
	}
	return out, nil
}

func (r *ItemRepository) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	raw, err := r.client.Get(ctx, itemKey(itemID)).Result()
	if err == nil {
		var item domain.Item
		if err := json.Unmarshal([]byte(raw), &item); err == nil {
			return item, nil
		}
	}

	result, err, _ := r.sf.Do("item:"+itemID, func() (interface{}, error) {
		item, err := r.loader.LoadItem(ctx, itemID)
		if err != nil {
			return domain.Item{}, err
		}
		if encoded, err := json.Marshal(item); err == nil {
			_ = r.client.Set(ctx, itemKey(itemID), encoded, r.ttlWithJitter()).Err()
		}
		return item, nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return result.(domain.Item), nil
}

func (r *ItemRepository) RecordItemUse(ctx context.Context, itemID string) error {
	return r.client.Incr(ctx, usageKey(itemID)).Err()
}

func (r *ItemRepository) RecordAssessmentStart(ctx context.Context, jurisdiction string) error {
	return r.client.Incr(ctx, assessmentsKey(jurisdiction)).Err()
}

func (r *ItemRepository) TotalAssessments(ctx context.Context, jurisdiction string) (int, error) {
	raw, err := r.client.Get(ctx, assessmentsKey(jurisdiction)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	total, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse assessment counter: %w", err)
	}
	return total, nil
}

func (r *ItemRepository) jurisdictionItems(ctx context.Context, jurisdiction string) ([]domain.Item, error) {
	key := bankKey(jurisdiction)

	cached, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		return decodeBank(cached), nil
	}

	result, err, _ := r.sf.Do("bank:"+jurisdiction, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(cached) > 0 {
			return decodeBank(cached), nil
		}

		items, err := r.loader.LoadItems(ctx, jurisdiction)
		if err != nil {
			return nil, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for _, item := range items {
			encoded, err := json.Marshal(item)
			if err != nil {
				continue
			}
			pipe.HSet(ctx, key, item.ID, encoded)
			pipe.Set(ctx, itemKey(item.ID), encoded, ttl)
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Item), nil
}

// overlayUsage replaces each item's TimesUsed with the shared counter.
func (r *ItemRepository) overlayUsage(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = usageKey(item.ID)
	}
	counts, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}
	for i, raw := range counts {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			items[i].TimesUsed = n
		}
	}
	return nil
}

func decodeBank(cached map[string]string) []domain.Item {
	items := make([]domain.Item, 0, len(cached))
	for _, raw := range cached {
		var item domain.Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func (r *ItemRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func bankKey(jurisdiction string) string {
	return "items:" + jurisdiction
}

func itemKey(itemID string) string {
	return "item:" + itemID
}

func usageKey(itemID string) string {
	return "exposure:item:" + itemID
}

func assessmentsKey(jurisdiction string) string {
	return "exposure:assessments:" + jurisdiction
}

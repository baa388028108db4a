package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-assessment-service/internal/domain"
)

// MasteryCache caches derived mastery scores per (student, concept). The
// retention factor decays daily, so a short TTL keeps cached scores honest
// without invalidation plumbing.
type MasteryCache struct {
	client *redis.Client
	ttl    time.Duration
	rnd    *rand.Rand
}

func NewMasteryCache(client *redis.Client, ttl time.Duration) *MasteryCache {
	return &MasteryCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *MasteryCache) GetScore(ctx context.Context, studentID, conceptID string) (domain.MasteryScore, bool, error) {
	raw, err := c.client.Get(ctx, masteryKey(studentID, conceptID)).Result()
	if err == redis.Nil {
		return domain.MasteryScore{}, false, nil
	}
	if err != nil {
		return domain.MasteryScore{}, false, err
	}
	var score domain.MasteryScore
	if err := json.Unmarshal([]byte(raw), &score); err != nil {
		return domain.MasteryScore{}, false, err
	}
	return score, true, nil
}

func (c *MasteryCache) SetScore(ctx context.Context, studentID, conceptID string, score domain.MasteryScore) error {
	encoded, err := json.Marshal(score)
	if err != nil {
		return err
	}
	ttl := c.ttl
	if ttl > 0 {
		ttl += time.Duration(c.rnd.Int63n(int64(ttl)/10 + 1))
	}
	return c.client.Set(ctx, masteryKey(studentID, conceptID), encoded, ttl).Err()
}

func masteryKey(studentID, conceptID string) string {
	return "mastery:" + studentID + ":" + conceptID
}

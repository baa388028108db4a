package redis

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"adaptive-assessment-service/internal/domain"
)

// RewardLedger implements the reward ledger on Redis. Milestone grants ride
// on SETNX, which makes GrantOnce atomic across instances: exactly one
// caller wins the key, everyone else sees an existing grant.
type RewardLedger struct {
	client *redis.Client
}

func NewRewardLedger(client *redis.Client) *RewardLedger {
	return &RewardLedger{client: client}
}

func (l *RewardLedger) GrantOnce(ctx context.Context, reward domain.Reward) (bool, error) {
	encoded, err := json.Marshal(reward)
	if err != nil {
		return false, err
	}
	// Grants never expire: the ledger is the durable record of what the
	// student earned.
	return l.client.SetNX(ctx, rewardKey(reward.StudentID, reward.MilestoneID), encoded, 0).Result()
}

func (l *RewardLedger) AddXP(ctx context.Context, studentID string, xp int) (int, error) {
	total, err := l.client.IncrBy(ctx, xpKey(studentID), int64(xp)).Result()
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (l *RewardLedger) TotalXP(ctx context.Context, studentID string) (int, error) {
	raw, err := l.client.Get(ctx, xpKey(studentID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func rewardKey(studentID, milestoneID string) string {
	return "reward:" + studentID + ":" + milestoneID
}

func xpKey(studentID string) string {
	return "xp:" + studentID
}

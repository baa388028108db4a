package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"adaptive-assessment-service/internal/domain"
)

func TestMasteryCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewMasteryCache(newClient(mr), time.Hour)
	ctx := context.Background()

	if _, ok, err := cache.GetScore(ctx, "stu1", "c-offer"); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	score := domain.MasteryScore{
		RecentAccuracy:  0.9,
		OverallAccuracy: 0.8,
		TimeEfficiency:  1.0,
		Consistency:     0.7,
		Retention:       0.95,
		Overall:         0.87,
		Level:           domain.LevelMastery,
	}
	if err := cache.SetScore(ctx, "stu1", "c-offer", score); err != nil {
		t.Fatalf("SetScore: %v", err)
	}

	got, ok, err := cache.GetScore(ctx, "stu1", "c-offer")
	if err != nil || !ok {
		t.Fatalf("GetScore: ok=%v err=%v", ok, err)
	}
	if got != score {
		t.Fatalf("round trip mismatch: %+v != %+v", got, score)
	}
}

func TestMasteryCacheExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewMasteryCache(newClient(mr), time.Minute)
	ctx := context.Background()

	if err := cache.SetScore(ctx, "stu1", "c-offer", domain.MasteryScore{Level: domain.LevelNovice}); err != nil {
		t.Fatalf("SetScore: %v", err)
	}

	// Jitter adds at most 10%, so two minutes clears it.
	mr.FastForward(2 * time.Minute)

	if _, ok, err := cache.GetScore(ctx, "stu1", "c-offer"); err != nil || ok {
		t.Fatalf("score survived expiry: ok=%v err=%v", ok, err)
	}
}

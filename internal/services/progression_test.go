package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/types"
)

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{200, 3},
		{1050, 11},
		{-5, 1},
	}
	for _, tc := range cases {
		if got := LevelForXP(tc.xp); got != tc.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestTierForLevel(t *testing.T) {
	cases := []struct {
		level     int
		wantTier  string
		wantTitle string
	}{
		{1, "aspirant", "Aspirant"},
		{10, "aspirant", "Aspirant"},
		{11, "hunter", "Hunter"},
		{20, "hunter", "Hunter"},
		{21, "guardian", "Guardian"},
		{30, "guardian", "Guardian"},
		{31, "conjurer", "Conjurer"},
		{99, "conjurer", "Conjurer"},
	}
	for _, tc := range cases {
		tier, title := TierForLevel(tc.level)
		if tier != tc.wantTier || title != tc.wantTitle {
			t.Errorf("TierForLevel(%d) = %q/%q, want %q/%q", tc.level, tier, title, tc.wantTier, tc.wantTitle)
		}
	}
}

func TestEvaluateUnlocksOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	repo := &fakeAchievementRepo{held: map[uuid.UUID]map[string]*types.Achievement{}}
	service := NewAchievementService(db, log, repo)
	userID := uuid.New()

	stats := UnlockStats{TotalCompletions: 12, StreakCurrent: 3, StreakLongest: 3, Level: 1}
	first, err := service.Evaluate(context.Background(), nil, userID, stats)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	wantCodes := map[string]bool{"first_completion": true, "streak_3": true, "total_10": true}
	if len(first) != len(wantCodes) {
		t.Fatalf("unlocked %d achievements, want %d: %v", len(first), len(wantCodes), first)
	}
	for _, a := range first {
		if !wantCodes[a.Code] {
			t.Errorf("unexpected unlock %q", a.Code)
		}
	}

	// Same stats again: everything is already held.
	second, err := service.Evaluate(context.Background(), nil, userID, stats)
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second pass unlocked %v, want none", second)
	}

	// Progress unlocks only the newly crossed thresholds.
	stats.StreakCurrent = 7
	third, err := service.Evaluate(context.Background(), nil, userID, stats)
	if err != nil {
		t.Fatalf("third evaluate: %v", err)
	}
	if len(third) != 1 || third[0].Code != "streak_7" {
		t.Errorf("third pass = %v, want only streak_7", third)
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/types"
)

// UnlockStats are the numbers an unlock condition is judged against,
// snapshotted right after a completion lands.
type UnlockStats struct {
	TotalCompletions int64 `json:"total_completions"`
	StreakCurrent    int   `json:"streak_current"`
	StreakLongest    int   `json:"streak_longest"`
	Level            int   `json:"level"`
}

type achievementDef struct {
	Code        string
	Title       string
	Description string
	Rarity      string
	Unlocked    func(s UnlockStats) bool
}

// The catalog is ordered so the commonest unlocks come first in the unlock
// feed when several land at once.
var achievementCatalog = []achievementDef{
	{"first_completion", "First Step", "Complete a habit for the first time.", "common",
		func(s UnlockStats) bool { return s.TotalCompletions >= 1 }},

	{"streak_3", "Kindling", "Hold a 3-day streak.", "common",
		func(s UnlockStats) bool { return s.StreakCurrent >= 3 }},
	{"streak_7", "On Fire", "Hold a 7-day streak.", "rare",
		func(s UnlockStats) bool { return s.StreakCurrent >= 7 }},
	{"streak_30", "Unbroken Month", "Hold a 30-day streak.", "epic",
		func(s UnlockStats) bool { return s.StreakCurrent >= 30 }},
	{"streak_100", "Centurion", "Hold a 100-day streak.", "legendary",
		func(s UnlockStats) bool { return s.StreakCurrent >= 100 }},

	{"level_5", "Apprentice", "Reach level 5.", "common",
		func(s UnlockStats) bool { return s.Level >= 5 }},
	{"level_10", "Adept", "Reach level 10.", "rare",
		func(s UnlockStats) bool { return s.Level >= 10 }},
	{"level_20", "Veteran", "Reach level 20.", "epic",
		func(s UnlockStats) bool { return s.Level >= 20 }},
	{"level_30", "Master", "Reach level 30.", "legendary",
		func(s UnlockStats) bool { return s.Level >= 30 }},

	{"total_10", "Getting Started", "Record 10 completions.", "common",
		func(s UnlockStats) bool { return s.TotalCompletions >= 10 }},
	{"total_50", "Committed", "Record 50 completions.", "rare",
		func(s UnlockStats) bool { return s.TotalCompletions >= 50 }},
	{"total_100", "Dedicated", "Record 100 completions.", "epic",
		func(s UnlockStats) bool { return s.TotalCompletions >= 100 }},
	{"total_365", "A Year of Work", "Record 365 completions.", "epic",
		func(s UnlockStats) bool { return s.TotalCompletions >= 365 }},
	{"total_1000", "Relentless", "Record 1000 completions.", "legendary",
		func(s UnlockStats) bool { return s.TotalCompletions >= 1000 }},
}

type AchievementService interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.Achievement, error)
	Evaluate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, stats UnlockStats) ([]*types.Achievement, error)
}

type achievementService struct {
	db              *gorm.DB
	log             *logger.Logger
	achievementRepo repos.AchievementRepo
}

func NewAchievementService(db *gorm.DB, log *logger.Logger, achievementRepo repos.AchievementRepo) AchievementService {
	return &achievementService{
		db:              db,
		log:             log.With("service", "AchievementService"),
		achievementRepo: achievementRepo,
	}
}

func (s *achievementService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.Achievement, error) {
	return s.achievementRepo.ListByUser(ctx, nil, userID)
}

// Evaluate walks the catalog against the given stats and unlocks everything
// newly satisfied. Already-held codes are skipped cheaply via one lookup.
func (s *achievementService) Evaluate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, stats UnlockStats) ([]*types.Achievement, error) {
	held, err := s.achievementRepo.CodesByUser(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("load held achievements: %w", err)
	}

	criteria, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshal criteria: %w", err)
	}

	now := time.Now().UTC()
	var unlocked []*types.Achievement
	for _, def := range achievementCatalog {
		if _, ok := held[def.Code]; ok {
			continue
		}
		if !def.Unlocked(stats) {
			continue
		}
		achievement := &types.Achievement{
			ID:          uuid.New(),
			UserID:      userID,
			Code:        def.Code,
			Title:       def.Title,
			Description: def.Description,
			Rarity:      def.Rarity,
			Criteria:    datatypes.JSON(criteria),
			UnlockedAt:  now,
		}
		if err := s.achievementRepo.Create(ctx, tx, achievement); err != nil {
			return nil, fmt.Errorf("unlock %s: %w", def.Code, err)
		}
		s.log.Info("achievement unlocked", "userID", userID, "code", def.Code)
		unlocked = append(unlocked, achievement)
	}
	return unlocked, nil
}

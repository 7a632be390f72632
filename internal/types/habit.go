package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type HabitDifficulty string

const (
	DifficultyEasy      HabitDifficulty = "easy"
	DifficultyMedium    HabitDifficulty = "medium"
	DifficultyHard      HabitDifficulty = "hard"
	DifficultyLegendary HabitDifficulty = "legendary"
)

func (d HabitDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyLegendary:
		return true
	}
	return false
}

// XPReward is the experience granted per completion of a habit at this
// difficulty.
func (d HabitDifficulty) XPReward() int {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyHard:
		return 35
	case DifficultyLegendary:
		return 50
	default:
		return 20
	}
}

type Habit struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"index;not null" json:"user_id"`
	User        *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description"`
	Rule        string          `gorm:"not null;default:'daily';column:rule" json:"rule"`
	Category    string          `gorm:"not null;default:'personal'" json:"category"`
	Difficulty  HabitDifficulty `gorm:"not null;default:'medium'" json:"difficulty"`
	XPReward    int             `gorm:"not null;column:xp_reward" json:"xp_reward"`
	Icon        string          `gorm:"not null;default:'sword'" json:"icon"`
	Color       string          `gorm:"not null;default:'#8B5CF6'" json:"color"`
	Active      bool            `gorm:"not null;default:true" json:"active"`

	// Weekday names a weekly habit targets, e.g. ["monday","thursday"].
	TargetWeekdays datatypes.JSON `gorm:"column:target_weekdays" json:"target_weekdays"`
	ReminderTime   string         `gorm:"column:reminder_time" json:"reminder_time,omitempty"`

	// Denormalized streak/stat cache, recomputed from the completion set on
	// every successful completion. Never the source of truth.
	StreakCurrent    int     `gorm:"not null;default:0" json:"streak_current"`
	StreakLongest    int     `gorm:"not null;default:0" json:"streak_longest"`
	TotalCompletions int     `gorm:"not null;default:0" json:"total_completions"`
	TotalMissed      int     `gorm:"not null;default:0" json:"total_missed"`
	CompletionRate   float64 `gorm:"not null;default:0" json:"completion_rate"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Habit) TableName() string {
	return "habit"
}

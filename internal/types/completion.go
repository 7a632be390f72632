package types

import (
	"time"

	"github.com/google/uuid"
)

// Completion is one recorded instance of a habit being completed on a UTC
// calendar day. Immutable once written; removed only when the habit is
// deleted. The (habit_id, day) unique index is the serialization point that
// keeps two concurrent completions from producing duplicate same-day rows.
type Completion struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	HabitID    uuid.UUID       `gorm:"not null;uniqueIndex:idx_completion_habit_day,priority:1" json:"habit_id"`
	Habit      *Habit          `gorm:"constraint:OnDelete:CASCADE;foreignKey:HabitID;references:ID" json:"-"`
	UserID     uuid.UUID       `gorm:"index;not null" json:"user_id"`
	Day        time.Time       `gorm:"type:date;not null;uniqueIndex:idx_completion_habit_day,priority:2" json:"day"`
	Note       string          `json:"note,omitempty"`
	XPEarned   int             `gorm:"not null;column:xp_earned" json:"xp_earned"`
	Difficulty HabitDifficulty `gorm:"not null" json:"difficulty"`
	CreatedAt  time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (Completion) TableName() string {
	return "completion"
}

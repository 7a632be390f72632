package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Achievement struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"not null;uniqueIndex:idx_achievement_user_code,priority:1" json:"user_id"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Code        string    `gorm:"not null;uniqueIndex:idx_achievement_user_code,priority:2" json:"code"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Rarity      string    `gorm:"not null;default:'common'" json:"rarity"`

	// Snapshot of the numbers that satisfied the unlock condition.
	Criteria datatypes.JSON `json:"criteria"`

	UnlockedAt time.Time `gorm:"not null;column:unlocked_at" json:"unlocked_at"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Achievement) TableName() string {
	return "achievement"
}

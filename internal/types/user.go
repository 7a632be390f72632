package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password      string    `gorm:"not null;column:password" json:"-"`
	Username      string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	Level         int       `gorm:"not null;default:1" json:"level"`
	XP            int       `gorm:"not null;default:0;column:xp" json:"xp"`
	Title         string    `gorm:"not null;default:'Aspirant'" json:"title"`
	AvatarTier    string    `gorm:"not null;default:'aspirant'" json:"avatar_tier"`
	StreakCurrent int       `gorm:"not null;default:0" json:"streak_current"`
	StreakLongest int       `gorm:"not null;default:0" json:"streak_longest"`

	NotificationsEnabled bool   `gorm:"not null;default:true" json:"notifications_enabled"`
	Theme                string `gorm:"not null;default:'dark'" json:"theme"`
	Language             string `gorm:"not null;default:'en'" json:"language"`

	LastActivityAt time.Time `gorm:"column:last_activity_at" json:"last_activity_at"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

// PublicUser is the projection safe to show to other players (search,
// ranking, friend lists).
type PublicUser struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Level      int       `json:"level"`
	XP         int       `json:"xp"`
	Title      string    `json:"title"`
	AvatarTier string    `json:"avatar_tier"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Level:      u.Level,
		XP:         u.XP,
		Title:      u.Title,
		AvatarTier: u.AvatarTier,
	}
}

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	BattleStatusPending  = "pending"
	BattleStatusActive   = "active"
	BattleStatusFinished = "finished"
	BattleStatusExpired  = "expired"
)

type Battle struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Player1ID uuid.UUID `gorm:"index;not null" json:"player1_id"`
	Player1   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:Player1ID;references:ID" json:"player1,omitempty"`
	Player2ID uuid.UUID `gorm:"index;not null" json:"player2_id"`
	Player2   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:Player2ID;references:ID" json:"player2,omitempty"`

	Kind            string    `gorm:"not null;default:'streak'" json:"kind"`
	Status          string    `gorm:"not null;default:'pending';index" json:"status"`
	DurationMinutes int       `gorm:"not null;default:60" json:"duration_minutes"`
	StartedAt       time.Time `gorm:"column:started_at" json:"started_at"`
	EndsAt          time.Time `gorm:"column:ends_at" json:"ends_at"`

	ScorePlayer1 int        `gorm:"not null;default:0" json:"score_player1"`
	ScorePlayer2 int        `gorm:"not null;default:0" json:"score_player2"`
	WinnerID     *uuid.UUID `gorm:"type:uuid" json:"winner_id,omitempty"`
	WinnerXP     int        `gorm:"not null;default:100;column:winner_xp" json:"winner_xp"`
	LoserXP      int        `gorm:"not null;default:25;column:loser_xp" json:"loser_xp"`

	Config  datatypes.JSON `json:"config,omitempty"`
	Actions datatypes.JSON `json:"actions,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Battle) TableName() string {
	return "battle"
}

// BattleAction is one entry of a battle's Actions log.
type BattleAction struct {
	Action string         `json:"action"`
	UserID uuid.UUID      `json:"user_id"`
	Detail map[string]any `json:"detail,omitempty"`
	At     time.Time      `json:"at"`
}

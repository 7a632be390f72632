package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChallengeStatusPending  = "pending"
	ChallengeStatusAccepted = "accepted"
	ChallengeStatusDeclined = "declined"
	ChallengeStatusExpired  = "expired"
)

type Challenge struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SenderID    uuid.UUID `gorm:"index;not null" json:"sender_id"`
	Sender      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:SenderID;references:ID" json:"sender,omitempty"`
	RecipientID uuid.UUID `gorm:"index;not null" json:"recipient_id"`
	Recipient   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecipientID;references:ID" json:"recipient,omitempty"`

	Kind        string     `gorm:"not null;default:'streak_7_days'" json:"kind"`
	Message     string     `json:"message,omitempty"`
	Status      string     `gorm:"not null;default:'pending';index" json:"status"`
	EndsAt      time.Time  `gorm:"column:ends_at" json:"ends_at"`
	RespondedAt *time.Time `gorm:"column:responded_at" json:"responded_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Challenge) TableName() string {
	return "challenge"
}

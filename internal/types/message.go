package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MessageKindPrivate     = "private"
	MessageKindChallenge   = "challenge"
	MessageKindSystem      = "system"
	MessageKindAchievement = "achievement"
)

type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SenderID    uuid.UUID `gorm:"index;not null" json:"sender_id"`
	Sender      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:SenderID;references:ID" json:"sender,omitempty"`
	RecipientID uuid.UUID `gorm:"index;not null" json:"recipient_id"`
	Recipient   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:RecipientID;references:ID" json:"recipient,omitempty"`

	Body string `gorm:"not null" json:"body"`
	Kind string `gorm:"not null;default:'private';index" json:"kind"`

	Read   bool       `gorm:"not null;default:false;index" json:"read"`
	ReadAt *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`

	Attachments datatypes.JSON `json:"attachments,omitempty"`
	ReplyToID   *uuid.UUID     `gorm:"type:uuid" json:"reply_to_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Message) TableName() string {
	return "message"
}

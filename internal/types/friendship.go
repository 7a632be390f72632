package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	FriendshipStatusPending  = "pending"
	FriendshipStatusAccepted = "accepted"
	FriendshipStatusRejected = "rejected"
	FriendshipStatusBlocked  = "blocked"
)

// Friendship links an ordered user pair: UserAID is always the requester's
// side of the original request. The pair is unique regardless of direction,
// enforced by the repo checking both orientations before insert plus the
// composite unique index.
type Friendship struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserAID uuid.UUID `gorm:"not null;uniqueIndex:idx_friendship_pair,priority:1" json:"user_a_id"`
	UserA   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserAID;references:ID" json:"user_a,omitempty"`
	UserBID uuid.UUID `gorm:"not null;uniqueIndex:idx_friendship_pair,priority:2" json:"user_b_id"`
	UserB   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserBID;references:ID" json:"user_b,omitempty"`

	Status        string     `gorm:"not null;default:'pending';index" json:"status"`
	RequestedByID uuid.UUID  `gorm:"type:uuid;not null" json:"requested_by_id"`
	AcceptedAt    *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Friendship) TableName() string {
	return "friendship"
}

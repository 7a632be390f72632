package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, message *types.Message) error
	GetByID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.Message, error)
	Conversation(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID, limit int) ([]*types.Message, error)
	ListInbox(ctx context.Context, tx *gorm.DB, userID uuid.UUID, unreadOnly bool) ([]*types.Message, error)
	MarkRead(ctx context.Context, tx *gorm.DB, messageID, recipientID uuid.UUID) error
	MarkConversationRead(ctx context.Context, tx *gorm.DB, recipientID, senderID uuid.UUID) error
	UnreadCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	ListInvolving(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (mr *messageRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return mr.db
}

func (mr *messageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.Message) error {
	return mr.conn(tx).WithContext(ctx).Create(message).Error
}

func (mr *messageRepo) GetByID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.Message, error) {
	var message types.Message
	if err := mr.conn(tx).WithContext(ctx).
		Where("id = ?", messageID).
		First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (mr *messageRepo) Conversation(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []*types.Message
	if err := mr.conn(tx).WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (mr *messageRepo) ListInbox(ctx context.Context, tx *gorm.DB, userID uuid.UUID, unreadOnly bool) ([]*types.Message, error) {
	query := mr.conn(tx).WithContext(ctx).
		Preload("Sender").
		Where("recipient_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	var messages []*types.Message
	if err := query.Order("created_at DESC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (mr *messageRepo) MarkRead(ctx context.Context, tx *gorm.DB, messageID, recipientID uuid.UUID) error {
	now := time.Now().UTC()
	result := mr.conn(tx).WithContext(ctx).
		Model(&types.Message{}).
		Where("id = ? AND recipient_id = ? AND read = ?", messageID, recipientID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (mr *messageRepo) MarkConversationRead(ctx context.Context, tx *gorm.DB, recipientID, senderID uuid.UUID) error {
	now := time.Now().UTC()
	return mr.conn(tx).WithContext(ctx).
		Model(&types.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND read = ?", recipientID, senderID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error
}

// ListInvolving returns the user's most recent traffic in either direction,
// newest first. The conversation list is folded from it in the service.
func (mr *messageRepo) ListInvolving(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 200
	}
	var messages []*types.Message
	if err := mr.conn(tx).WithContext(ctx).
		Preload("Sender").
		Preload("Recipient").
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (mr *messageRepo) UnreadCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	if err := mr.conn(tx).WithContext(ctx).
		Model(&types.Message{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

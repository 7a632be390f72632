package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/types"
)

type ChallengeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, challenge *types.Challenge) error
	GetByID(ctx context.Context, tx *gorm.DB, challengeID uuid.UUID) (*types.Challenge, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Challenge, error)
	FindPendingBetween(ctx context.Context, tx *gorm.DB, senderID, recipientID uuid.UUID) (*types.Challenge, error)
	Save(ctx context.Context, tx *gorm.DB, challenge *types.Challenge) error
}

type challengeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChallengeRepo(db *gorm.DB, baseLog *logger.Logger) ChallengeRepo {
	return &challengeRepo{db: db, log: baseLog.With("repo", "ChallengeRepo")}
}

func (cr *challengeRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *challengeRepo) Create(ctx context.Context, tx *gorm.DB, challenge *types.Challenge) error {
	return cr.conn(tx).WithContext(ctx).Create(challenge).Error
}

func (cr *challengeRepo) GetByID(ctx context.Context, tx *gorm.DB, challengeID uuid.UUID) (*types.Challenge, error) {
	var challenge types.Challenge
	if err := cr.conn(tx).WithContext(ctx).
		Preload("Sender").
		Preload("Recipient").
		Where("id = ?", challengeID).
		First(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (cr *challengeRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Challenge, error) {
	query := cr.conn(tx).WithContext(ctx).
		Preload("Sender").
		Preload("Recipient").
		Where("sender_id = ? OR recipient_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var challenges []*types.Challenge
	if err := query.Order("created_at DESC").Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}

func (cr *challengeRepo) FindPendingBetween(ctx context.Context, tx *gorm.DB, senderID, recipientID uuid.UUID) (*types.Challenge, error) {
	var challenge types.Challenge
	err := cr.conn(tx).WithContext(ctx).
		Where("sender_id = ? AND recipient_id = ? AND status = ?", senderID, recipientID, types.ChallengeStatusPending).
		First(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (cr *challengeRepo) Save(ctx context.Context, tx *gorm.DB, challenge *types.Challenge) error {
	return cr.conn(tx).WithContext(ctx).Save(challenge).Error
}

package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/types"
)

type FriendshipRepo interface {
	Create(ctx context.Context, tx *gorm.DB, friendship *types.Friendship) error
	GetByID(ctx context.Context, tx *gorm.DB, friendshipID uuid.UUID) (*types.Friendship, error)
	FindBetween(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (*types.Friendship, error)
	ListFriends(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Friendship, error)
	ListPendingFor(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Friendship, error)
	ListSentBy(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Friendship, error)
	Save(ctx context.Context, tx *gorm.DB, friendship *types.Friendship) error
	Delete(ctx context.Context, tx *gorm.DB, friendshipID uuid.UUID) error
	AreFriends(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (bool, error)
}

type friendshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFriendshipRepo(db *gorm.DB, baseLog *logger.Logger) FriendshipRepo {
	return &friendshipRepo{db: db, log: baseLog.With("repo", "FriendshipRepo")}
}

func (fr *friendshipRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return fr.db
}

func (fr *friendshipRepo) Create(ctx context.Context, tx *gorm.DB, friendship *types.Friendship) error {
	return fr.conn(tx).WithContext(ctx).Create(friendship).Error
}

func (fr *friendshipRepo) GetByID(ctx context.Context, tx *gorm.DB, friendshipID uuid.UUID) (*types.Friendship, error) {
	var friendship types.Friendship
	if err := fr.conn(tx).WithContext(ctx).
		Where("id = ?", friendshipID).
		First(&friendship).Error; err != nil {
		return nil, err
	}
	return &friendship, nil
}

// FindBetween matches the pair in either orientation.
func (fr *friendshipRepo) FindBetween(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (*types.Friendship, error) {
	var friendship types.Friendship
	err := fr.conn(tx).WithContext(ctx).
		Where("(user_a_id = ? AND user_b_id = ?) OR (user_a_id = ? AND user_b_id = ?)",
			userA, userB, userB, userA).
		First(&friendship).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (fr *friendshipRepo) ListFriends(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Friendship, error) {
	var friendships []*types.Friendship
	if err := fr.conn(tx).WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		Where("(user_a_id = ? OR user_b_id = ?) AND status = ?", userID, userID, types.FriendshipStatusAccepted).
		Order("updated_at DESC").
		Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}

func (fr *friendshipRepo) ListPendingFor(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Friendship, error) {
	var friendships []*types.Friendship
	if err := fr.conn(tx).WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		Where("(user_a_id = ? OR user_b_id = ?) AND status = ? AND requested_by_id <> ?",
			userID, userID, types.FriendshipStatusPending, userID).
		Order("created_at DESC").
		Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}

func (fr *friendshipRepo) ListSentBy(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Friendship, error) {
	var friendships []*types.Friendship
	if err := fr.conn(tx).WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		Where("status = ? AND requested_by_id = ?", types.FriendshipStatusPending, userID).
		Order("created_at DESC").
		Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}

func (fr *friendshipRepo) Save(ctx context.Context, tx *gorm.DB, friendship *types.Friendship) error {
	return fr.conn(tx).WithContext(ctx).Save(friendship).Error
}

func (fr *friendshipRepo) Delete(ctx context.Context, tx *gorm.DB, friendshipID uuid.UUID) error {
	return fr.conn(tx).WithContext(ctx).
		Where("id = ?", friendshipID).
		Delete(&types.Friendship{}).Error
}

func (fr *friendshipRepo) AreFriends(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (bool, error) {
	var count int64
	if err := fr.conn(tx).WithContext(ctx).
		Model(&types.Friendship{}).
		Where("((user_a_id = ? AND user_b_id = ?) OR (user_a_id = ? AND user_b_id = ?)) AND status = ?",
			userA, userB, userB, userA, types.FriendshipStatusAccepted).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

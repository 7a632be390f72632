package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/types"
)

type AchievementRepo interface {
	Create(ctx context.Context, tx *gorm.DB, achievement *types.Achievement) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Achievement, error)
	ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Achievement, error)
	CodesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]struct{}, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type achievementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAchievementRepo(db *gorm.DB, baseLog *logger.Logger) AchievementRepo {
	return &achievementRepo{db: db, log: baseLog.With("repo", "AchievementRepo")}
}

func (ar *achievementRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

// Create is idempotent per (user, code): a second unlock of the same code is
// swallowed rather than surfaced, so concurrent evaluators can race safely.
func (ar *achievementRepo) Create(ctx context.Context, tx *gorm.DB, achievement *types.Achievement) error {
	if err := ar.conn(tx).WithContext(ctx).Create(achievement).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

func (ar *achievementRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Achievement, error) {
	var achievements []*types.Achievement
	if err := ar.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at DESC").
		Find(&achievements).Error; err != nil {
		return nil, err
	}
	return achievements, nil
}

func (ar *achievementRepo) ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Achievement, error) {
	if limit <= 0 {
		limit = 5
	}
	var achievements []*types.Achievement
	if err := ar.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at DESC").
		Limit(limit).
		Find(&achievements).Error; err != nil {
		return nil, err
	}
	return achievements, nil
}

func (ar *achievementRepo) CodesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]struct{}, error) {
	var codes []string
	if err := ar.conn(tx).WithContext(ctx).
		Model(&types.Achievement{}).
		Where("user_id = ?", userID).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		out[c] = struct{}{}
	}
	return out, nil
}

func (ar *achievementRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	if err := ar.conn(tx).WithContext(ctx).
		Model(&types.Achievement{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

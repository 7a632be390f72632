package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/types"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *types.User) error
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error)
	EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error)
	Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.User, error)
	UpdateXPAndLevel(ctx context.Context, tx *gorm.DB, userID uuid.UUID, xp, level int) error
	UpdateStreak(ctx context.Context, tx *gorm.DB, userID uuid.UUID, current, longest int) error
	UpdateTitle(ctx context.Context, tx *gorm.DB, userID uuid.UUID, avatarTier, title string) error
	UpdatePreferences(ctx context.Context, tx *gorm.DB, userID uuid.UUID, updates map[string]any) error
	TouchActivity(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	Ranking(ctx context.Context, tx *gorm.DB, limit int) ([]*types.User, error)
	CountWithMoreXP(ctx context.Context, tx *gorm.DB, xp int) (int64, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ur.db
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) error {
	return ur.conn(tx).WithContext(ctx).Create(user).Error
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	var user types.User
	if err := ur.conn(tx).WithContext(ctx).
		Where("id = ?", userID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	var user types.User
	if err := ur.conn(tx).WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	var count int64
	if err := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	var count int64
	if err := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.User, error) {
	var results []*types.User
	if limit <= 0 {
		limit = 20
	}
	if err := ur.conn(tx).WithContext(ctx).
		Where("username ILIKE ?", "%"+query+"%").
		Order("username ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) UpdateXPAndLevel(ctx context.Context, tx *gorm.DB, userID uuid.UUID, xp, level int) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"xp": xp, "level": level, "updated_at": time.Now().UTC()}).Error
}

func (ur *userRepo) UpdateStreak(ctx context.Context, tx *gorm.DB, userID uuid.UUID, current, longest int) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"streak_current": current, "streak_longest": longest, "updated_at": time.Now().UTC()}).Error
}

func (ur *userRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, userID uuid.UUID, avatarTier, title string) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"avatar_tier": avatarTier, "title": title, "updated_at": time.Now().UTC()}).Error
}

func (ur *userRepo) UpdatePreferences(ctx context.Context, tx *gorm.DB, userID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

func (ur *userRepo) TouchActivity(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("last_activity_at", time.Now().UTC()).Error
}

func (ur *userRepo) Ranking(ctx context.Context, tx *gorm.DB, limit int) ([]*types.User, error) {
	var results []*types.User
	if limit <= 0 {
		limit = 10
	}
	if err := ur.conn(tx).WithContext(ctx).
		Order("xp DESC, level DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) CountWithMoreXP(ctx context.Context, tx *gorm.DB, xp int) (int64, error) {
	var count int64
	if err := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("xp > ?", xp).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

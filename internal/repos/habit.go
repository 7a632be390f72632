package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/types"
)

// HabitFilters narrows ListByUser; nil fields are ignored.
type HabitFilters struct {
	Active     *bool
	Category   string
	Difficulty string
}

type HabitRepo interface {
	Create(ctx context.Context, tx *gorm.DB, habit *types.Habit) error
	GetByID(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) (*types.Habit, error)
	GetOwned(ctx context.Context, tx *gorm.DB, habitID, userID uuid.UUID) (*types.Habit, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filters HabitFilters) ([]*types.Habit, error)
	ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Habit, error)
	Save(ctx context.Context, tx *gorm.DB, habit *types.Habit) error
	Delete(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) error
	UpdateStreakCache(ctx context.Context, tx *gorm.DB, habitID uuid.UUID, current, longest, totalCompletions int, completionRate float64) error
}

type habitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHabitRepo(db *gorm.DB, baseLog *logger.Logger) HabitRepo {
	return &habitRepo{db: db, log: baseLog.With("repo", "HabitRepo")}
}

func (hr *habitRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return hr.db
}

func (hr *habitRepo) Create(ctx context.Context, tx *gorm.DB, habit *types.Habit) error {
	return hr.conn(tx).WithContext(ctx).Create(habit).Error
}

func (hr *habitRepo) GetByID(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) (*types.Habit, error) {
	var habit types.Habit
	if err := hr.conn(tx).WithContext(ctx).
		Where("id = ?", habitID).
		First(&habit).Error; err != nil {
		return nil, err
	}
	return &habit, nil
}

func (hr *habitRepo) GetOwned(ctx context.Context, tx *gorm.DB, habitID, userID uuid.UUID) (*types.Habit, error) {
	var habit types.Habit
	if err := hr.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", habitID, userID).
		First(&habit).Error; err != nil {
		return nil, err
	}
	return &habit, nil
}

func (hr *habitRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filters HabitFilters) ([]*types.Habit, error) {
	query := hr.conn(tx).WithContext(ctx).Where("user_id = ?", userID)
	if filters.Active != nil {
		query = query.Where("active = ?", *filters.Active)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Difficulty != "" {
		query = query.Where("difficulty = ?", filters.Difficulty)
	}
	var habits []*types.Habit
	if err := query.Order("created_at DESC").Find(&habits).Error; err != nil {
		return nil, err
	}
	return habits, nil
}

func (hr *habitRepo) ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Habit, error) {
	active := true
	return hr.ListByUser(ctx, tx, userID, HabitFilters{Active: &active})
}

func (hr *habitRepo) Save(ctx context.Context, tx *gorm.DB, habit *types.Habit) error {
	habit.UpdatedAt = time.Now().UTC()
	return hr.conn(tx).WithContext(ctx).Save(habit).Error
}

func (hr *habitRepo) Delete(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) error {
	return hr.conn(tx).WithContext(ctx).
		Where("id = ?", habitID).
		Delete(&types.Habit{}).Error
}

func (hr *habitRepo) UpdateStreakCache(ctx context.Context, tx *gorm.DB, habitID uuid.UUID, current, longest, totalCompletions int, completionRate float64) error {
	return hr.conn(tx).WithContext(ctx).
		Model(&types.Habit{}).
		Where("id = ?", habitID).
		Updates(map[string]any{
			"streak_current":    current,
			"streak_longest":    longest,
			"total_completions": totalCompletions,
			"completion_rate":   completionRate,
			"updated_at":        time.Now().UTC(),
		}).Error
}

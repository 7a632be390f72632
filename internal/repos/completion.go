package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/streak"
	"github.com/yungbote/librarium-backend/internal/types"
)

// ErrDuplicateCompletion signals that a row for the same (habit, day)
// already exists. It is how the store serializes two concurrent completion
// requests that both passed the eligibility check.
var ErrDuplicateCompletion = errors.New("completion already recorded for this day")

type CompletionRepo interface {
	Append(ctx context.Context, tx *gorm.DB, completion *types.Completion) error
	GetDaysByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) ([]streak.Day, error)
	GetDaysByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]streak.Day, error)
	GetLastDayByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) (*streak.Day, error)
	ListByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID, from, to *time.Time, limit int) ([]*types.Completion, error)
	ListByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.Completion, error)
	CountByUserBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (int64, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Completion, error)
	BreakdownByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since *time.Time) ([]CompletionBucket, error)
}

// CompletionBucket is one row of the per-category/per-difficulty completion
// aggregation behind the stats endpoint.
type CompletionBucket struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Count      int64  `json:"count"`
}

type completionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompletionRepo(db *gorm.DB, baseLog *logger.Logger) CompletionRepo {
	return &completionRepo{db: db, log: baseLog.With("repo", "CompletionRepo")}
}

func (cr *completionRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *completionRepo) Append(ctx context.Context, tx *gorm.DB, completion *types.Completion) error {
	if err := cr.conn(tx).WithContext(ctx).Create(completion).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCompletion
		}
		return err
	}
	return nil
}

func (cr *completionRepo) GetDaysByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) ([]streak.Day, error) {
	var raw []time.Time
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.Completion{}).
		Where("habit_id = ?", habitID).
		Order("day ASC").
		Pluck("day", &raw).Error; err != nil {
		return nil, err
	}
	return toDays(raw), nil
}

func (cr *completionRepo) GetDaysByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]streak.Day, error) {
	var raw []time.Time
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.Completion{}).
		Where("user_id = ?", userID).
		Order("day ASC").
		Pluck("day", &raw).Error; err != nil {
		return nil, err
	}
	return toDays(raw), nil
}

func (cr *completionRepo) GetLastDayByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) (*streak.Day, error) {
	var last types.Completion
	err := cr.conn(tx).WithContext(ctx).
		Where("habit_id = ?", habitID).
		Order("day DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d := streak.DayOf(last.Day)
	return &d, nil
}

func (cr *completionRepo) ListByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID, from, to *time.Time, limit int) ([]*types.Completion, error) {
	query := cr.conn(tx).WithContext(ctx).Where("habit_id = ?", habitID)
	if from != nil {
		query = query.Where("day >= ?", *from)
	}
	if to != nil {
		query = query.Where("day <= ?", *to)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var completions []*types.Completion
	if err := query.Order("day DESC").Find(&completions).Error; err != nil {
		return nil, err
	}
	return completions, nil
}

func (cr *completionRepo) ListByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.Completion, error) {
	var completions []*types.Completion
	if err := cr.conn(tx).WithContext(ctx).
		Where("user_id = ? AND day >= ?", userID, since).
		Order("day DESC").
		Find(&completions).Error; err != nil {
		return nil, err
	}
	return completions, nil
}

func (cr *completionRepo) CountByUserBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.Completion{}).
		Where("user_id = ? AND created_at >= ? AND created_at <= ?", userID, from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (cr *completionRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.Completion{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (cr *completionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Completion, error) {
	var completions []*types.Completion
	if err := cr.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day DESC").
		Find(&completions).Error; err != nil {
		return nil, err
	}
	return completions, nil
}

func (cr *completionRepo) BreakdownByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since *time.Time) ([]CompletionBucket, error) {
	query := cr.conn(tx).WithContext(ctx).
		Model(&types.Completion{}).
		Select("habit.category AS category, completion.difficulty AS difficulty, count(*) AS count").
		Joins("JOIN habit ON habit.id = completion.habit_id").
		Where("completion.user_id = ?", userID)
	if since != nil {
		query = query.Where("completion.day >= ?", *since)
	}
	var buckets []CompletionBucket
	if err := query.
		Group("habit.category, completion.difficulty").
		Scan(&buckets).Error; err != nil {
		return nil, err
	}
	return buckets, nil
}

// toDays collapses raw timestamps to the distinct set of canonical days.
func toDays(raw []time.Time) []streak.Day {
	seen := make(map[streak.Day]struct{}, len(raw))
	out := make([]streak.Day, 0, len(raw))
	for _, t := range raw {
		d := streak.DayOf(t)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

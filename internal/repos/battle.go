package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/types"
)

type BattleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, battle *types.Battle) error
	GetByID(ctx context.Context, tx *gorm.DB, battleID uuid.UUID) (*types.Battle, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Battle, error)
	ListPendingForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Battle, error)
	FindOpenBetween(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (*types.Battle, error)
	Save(ctx context.Context, tx *gorm.DB, battle *types.Battle) error
	CountWonByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type battleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBattleRepo(db *gorm.DB, baseLog *logger.Logger) BattleRepo {
	return &battleRepo{db: db, log: baseLog.With("repo", "BattleRepo")}
}

func (br *battleRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return br.db
}

func (br *battleRepo) Create(ctx context.Context, tx *gorm.DB, battle *types.Battle) error {
	return br.conn(tx).WithContext(ctx).Create(battle).Error
}

func (br *battleRepo) GetByID(ctx context.Context, tx *gorm.DB, battleID uuid.UUID) (*types.Battle, error) {
	var battle types.Battle
	if err := br.conn(tx).WithContext(ctx).
		Preload("Player1").
		Preload("Player2").
		Where("id = ?", battleID).
		First(&battle).Error; err != nil {
		return nil, err
	}
	return &battle, nil
}

func (br *battleRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) ([]*types.Battle, error) {
	query := br.conn(tx).WithContext(ctx).
		Preload("Player1").
		Preload("Player2").
		Where("player1_id = ? OR player2_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var battles []*types.Battle
	if err := query.Order("created_at DESC").Find(&battles).Error; err != nil {
		return nil, err
	}
	return battles, nil
}

func (br *battleRepo) ListPendingForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Battle, error) {
	var battles []*types.Battle
	if err := br.conn(tx).WithContext(ctx).
		Preload("Player1").
		Where("player2_id = ? AND status = ?", userID, types.BattleStatusPending).
		Order("created_at DESC").
		Find(&battles).Error; err != nil {
		return nil, err
	}
	return battles, nil
}

// FindOpenBetween returns the pending or active battle involving both users
// in either seat, or nil when no such battle exists.
func (br *battleRepo) FindOpenBetween(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (*types.Battle, error) {
	var battle types.Battle
	err := br.conn(tx).WithContext(ctx).
		Where("status IN ?", []string{types.BattleStatusPending, types.BattleStatusActive}).
		Where(
			br.conn(tx).
				Where("player1_id = ? AND player2_id = ?", userA, userB).
				Or("player1_id = ? AND player2_id = ?", userB, userA),
		).
		First(&battle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &battle, nil
}

func (br *battleRepo) Save(ctx context.Context, tx *gorm.DB, battle *types.Battle) error {
	return br.conn(tx).WithContext(ctx).Save(battle).Error
}

func (br *battleRepo) CountWonByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var count int64
	if err := br.conn(tx).WithContext(ctx).
		Model(&types.Battle{}).
		Where("status = ? AND winner_id = ?", types.BattleStatusFinished, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

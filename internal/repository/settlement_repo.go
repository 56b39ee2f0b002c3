package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accelerator_sync_v1/internal/model"
)

// SettlementRepository 结算单仓库
type SettlementRepository interface {
	Upsert(ctx context.Context, s *model.Settlement) error
	// ListByUser 不按时间窗口过滤：结算滞后，可能对应很早之前的订单
	ListByUser(ctx context.Context, userID int64) ([]model.Settlement, error)
}

type settlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) Upsert(ctx context.Context, s *model.Settlement) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform_settlement_id"}},
			UpdateAll: true,
		}).
		Create(s).Error
}

func (r *settlementRepository) ListByUser(ctx context.Context, userID int64) ([]model.Settlement, error) {
	var list []model.Settlement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("settled_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

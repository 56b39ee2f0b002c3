package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accelerator_sync_v1/internal/model"
)

// AffiliateOrderRepository 联盟订单仓库
type AffiliateOrderRepository interface {
	Upsert(ctx context.Context, order *model.AffiliateOrder) error
	ListByUserWindow(ctx context.Context, userID int64, start, end time.Time) ([]model.AffiliateOrder, error)
}

type affiliateOrderRepository struct {
	db *gorm.DB
}

func NewAffiliateOrderRepository(db *gorm.DB) AffiliateOrderRepository {
	return &affiliateOrderRepository{db: db}
}

func (r *affiliateOrderRepository) Upsert(ctx context.Context, order *model.AffiliateOrder) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform_order_id"}, {Name: "collaboration_type"}},
			UpdateAll: true,
		}).
		Create(order).Error
}

func (r *affiliateOrderRepository) ListByUserWindow(ctx context.Context, userID int64, start, end time.Time) ([]model.AffiliateOrder, error) {
	var orders []model.AffiliateOrder
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND order_created_at >= ? AND order_created_at < ?", userID, start.UTC(), end.UTC()).
		Order("order_created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accelerator_sync_v1/internal/model"
)

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 平台订单仓库
type OrderRepository interface {
	Upsert(ctx context.Context, order *model.Order) error
	ListByUserWindow(ctx context.Context, userID int64, start, end time.Time) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Upsert 以 (user_id, platform_order_id) 为键，平台数据为准整行覆盖
func (r *orderRepository) Upsert(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform_order_id"}},
			UpdateAll: true,
		}).
		Create(order).Error
}

// ListByUserWindow 创建时间落在 [start, end) 内的订单
func (r *orderRepository) ListByUserWindow(ctx context.Context, userID int64, start, end time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND order_created_at >= ? AND order_created_at < ?", userID, start.UTC(), end.UTC()).
		Order("order_created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accelerator_sync_v1/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品映射与账本商品仓储
type ProductRepository interface {
	// 映射
	UpsertMapping(ctx context.Context, m *model.ProductMapping) (*model.ProductMapping, error)
	ListMappingsByConnection(ctx context.Context, connectionID int64) ([]model.ProductMapping, error)
	LinkedProductIndex(ctx context.Context, userID int64) (map[string]int64, error)

	// 账本商品
	CreateAndLink(ctx context.Context, mappingID int64, lp *model.LedgerProduct) error
	GetLedgerProduct(ctx context.Context, id int64) (*model.LedgerProduct, error)

	// 下架清理
	Retire(ctx context.Context, mapping *model.ProductMapping) error
}

// mappingSyncColumns 重复同步时覆盖的列，ledger_product_id 由 CreateAndLink 维护不在此列
var mappingSyncColumns = []string{
	"connection_id",
	"platform",
	"title",
	"status",
	"seller_skus",
	"price",
	"currency",
	"last_seen_at",
	"updated_at",
}

// ==================== 仓储实现 ====================

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// UpsertMapping 按 (user_id, platform_product_id) 写入，返回库中最新记录 (含已有关联)
func (r *productRepository) UpsertMapping(ctx context.Context, m *model.ProductMapping) (*model.ProductMapping, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform_product_id"}},
		DoUpdates: clause.AssignmentColumns(mappingSyncColumns),
	}).Create(m).Error
	if err != nil {
		return nil, err
	}

	var stored model.ProductMapping
	if err := db.Where("user_id = ? AND platform_product_id = ?", m.UserID, m.PlatformProductID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *productRepository) ListMappingsByConnection(ctx context.Context, connectionID int64) ([]model.ProductMapping, error) {
	var list []model.ProductMapping
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// LinkedProductIndex 平台商品ID -> 账本商品ID，仅包含已关联的
func (r *productRepository) LinkedProductIndex(ctx context.Context, userID int64) (map[string]int64, error) {
	var list []model.ProductMapping
	err := r.db.WithContext(ctx).
		Select("platform_product_id", "ledger_product_id").
		Where("user_id = ? AND ledger_product_id IS NOT NULL", userID).
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	index := make(map[string]int64, len(list))
	for _, m := range list {
		index[m.PlatformProductID] = *m.LedgerProductID
	}
	return index, nil
}

// CreateAndLink 创建账本商品并回写映射关联
func (r *productRepository) CreateAndLink(ctx context.Context, mappingID int64, lp *model.LedgerProduct) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lp).Error; err != nil {
			return err
		}
		return tx.Model(&model.ProductMapping{}).
			Where("id = ?", mappingID).
			Update("ledger_product_id", lp.ID).Error
	})
}

func (r *productRepository) GetLedgerProduct(ctx context.Context, id int64) (*model.LedgerProduct, error) {
	var lp model.LedgerProduct
	if err := r.db.WithContext(ctx).First(&lp, id).Error; err != nil {
		return nil, err
	}
	return &lp, nil
}

// Retire 删除映射及其账本商品，连同该商品的每日销量
// 外键已声明 ON DELETE CASCADE，这里仍显式删除销量行，SQLite 未开启外键时行为一致
func (r *productRepository) Retire(ctx context.Context, mapping *model.ProductMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if mapping.LedgerProductID != nil {
			lpID := *mapping.LedgerProductID
			if err := tx.Where("ledger_product_id = ?", lpID).Delete(&model.DailyProductUnits{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.LedgerProduct{}, lpID).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.ProductMapping{}, mapping.ID).Error
	})
}

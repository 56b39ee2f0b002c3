package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductMapping 平台商品 -> 账本商品
// 平台商品消失后连同账本商品一起删除
type ProductMapping struct {
	ID                int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64  `gorm:"not null;uniqueIndex:uniq_mapping_user_product,priority:1" json:"user_id"`
	PlatformProductID string `gorm:"size:64;not null;uniqueIndex:uniq_mapping_user_product,priority:2" json:"platform_product_id"`
	ConnectionID      int64  `gorm:"index;not null" json:"connection_id"`
	Platform          string `gorm:"size:32;not null" json:"platform"`

	Title      string                      `gorm:"size:512" json:"title"`
	Status     string                      `gorm:"size:32" json:"status"`
	SellerSkus datatypes.JSONSlice[string] `json:"seller_skus"`
	Price      decimal.Decimal             `gorm:"type:decimal(14,2);not null;default:0" json:"price"`
	Currency   string                      `gorm:"size:10" json:"currency"`

	// 为空表示尚未关联
	LedgerProductID *int64 `gorm:"index" json:"ledger_product_id"`

	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ProductMapping) TableName() string {
	return "platform_product_mappings"
}

// LedgerProduct 账本商品 (成本由用户维护)
type LedgerProduct struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64           `gorm:"index;not null" json:"user_id"`
	Name      string          `gorm:"size:512;not null" json:"name"`
	SKU       string          `gorm:"size:128" json:"sku"`
	COGS      decimal.Decimal `gorm:"column:cogs;type:decimal(14,2);not null;default:0" json:"cogs"`
	Platform  string          `gorm:"size:32;not null" json:"platform"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (LedgerProduct) TableName() string {
	return "ledger_products"
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AffiliateOrder 联盟订单
// 同一订单可能以不同合作类型出现，唯一键 (user_id, platform_order_id, collaboration_type)
type AffiliateOrder struct {
	ID                int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            int64  `gorm:"not null;uniqueIndex:uniq_aff_user_order_type,priority:1" json:"user_id"`
	PlatformOrderID   string `gorm:"size:64;not null;uniqueIndex:uniq_aff_user_order_type,priority:2" json:"platform_order_id"`
	CollaborationType string `gorm:"size:32;not null;uniqueIndex:uniq_aff_user_order_type,priority:3" json:"collaboration_type"`
	ConnectionID      int64  `gorm:"index;not null" json:"connection_id"`

	ProductID       string `gorm:"size:64" json:"product_id"`
	SkuID           string `gorm:"size:64" json:"sku_id"`
	CreatorUsername string `gorm:"size:128" json:"creator_username"`
	CreatorOpenID   string `gorm:"size:128" json:"creator_open_id"`

	CommissionRate   decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"commission_amount"`
	OrderAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"order_amount"`
	Currency         string          `gorm:"size:10" json:"currency"`

	OrderCreatedAt time.Time `gorm:"index;not null" json:"order_created_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (AffiliateOrder) TableName() string {
	return "platform_affiliate_orders"
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement 平台结算单，晚于订单到达，到达后覆盖估算值
type Settlement struct {
	ID                   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               int64  `gorm:"not null;uniqueIndex:uniq_settlement_user_sid,priority:1" json:"user_id"`
	PlatformSettlementID string `gorm:"size:64;not null;uniqueIndex:uniq_settlement_user_sid,priority:2" json:"platform_settlement_id"`
	ConnectionID         int64  `gorm:"index;not null" json:"connection_id"`

	SettlementAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"settlement_amount"`
	RevenueAmount       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"revenue_amount"`
	PlatformFee         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"platform_fee"`
	AffiliateCommission decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"affiliate_commission"`
	ShippingSubsidy     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"shipping_subsidy"`
	RefundAmount        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"refund_amount"`
	AdjustmentAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"adjustment_amount"`
	Currency            string          `gorm:"size:10" json:"currency"`

	SettledAt time.Time `gorm:"index;not null" json:"settled_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Settlement) TableName() string {
	return "platform_settlements"
}

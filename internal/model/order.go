package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderItem 订单行 (JSON 存储)
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SkuID       string          `json:"sku_id"`
	SellerSku   string          `json:"seller_sku"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Order 平台订单
// 唯一键 (user_id, platform_order_id)，重复同步整行覆盖
type Order struct {
	ID              int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64  `gorm:"not null;uniqueIndex:uniq_order_user_order,priority:1" json:"user_id"`
	PlatformOrderID string `gorm:"size:64;not null;uniqueIndex:uniq_order_user_order,priority:2" json:"platform_order_id"`
	ConnectionID    int64  `gorm:"index;not null" json:"connection_id"`

	Status   string `gorm:"size:32;index" json:"status"`
	Currency string `gorm:"size:10" json:"currency"`

	// 金额
	GrossAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"gross_amount"`
	SubtotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"subtotal_amount"`
	ShippingAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"shipping_amount"`
	SellerDiscount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"seller_discount"`
	PlatformDiscount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"platform_discount"`
	RefundAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"refund_amount"`

	Items   datatypes.JSONSlice[OrderItem] `json:"items"`
	RawData datatypes.JSON                 `json:"-"`

	OrderCreatedAt time.Time  `gorm:"index;not null" json:"order_created_at"`
	PaidAt         *time.Time `json:"paid_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "platform_orders"
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyLedgerEntry 每日账本 (user, date, platform 唯一)
// 字段分两类：同步写入的与用户手填的，对账只能更新前者
type DailyLedgerEntry struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64  `gorm:"not null;uniqueIndex:uniq_ledger_user_date_platform,priority:1" json:"user_id"`
	Date         string `gorm:"size:10;not null;uniqueIndex:uniq_ledger_user_date_platform,priority:2" json:"date"`
	Platform     string `gorm:"size:32;not null;uniqueIndex:uniq_ledger_user_date_platform,priority:3" json:"platform"`
	ConnectionID int64  `gorm:"index" json:"connection_id"`

	// ---- 同步字段 ----
	GrossRevenue        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"gross_revenue"`
	Refunds             decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"refunds"`
	OrderCount          int             `gorm:"not null;default:0" json:"order_count"`
	PlatformFee         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"platform_fee"`
	AffiliateCommission decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"affiliate_commission"`
	MatchPercent        int             `gorm:"not null;default:0" json:"match_percent"`
	SyncedAt            *time.Time      `json:"synced_at"`

	// ---- 手填字段 ----
	PostageCost  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"postage_cost"`
	PickPackCost decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"pick_pack_cost"`
	AdSpend      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"ad_spend"`
	Notes        string          `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DailyLedgerEntry) TableName() string {
	return "daily_ledger_entries"
}

// LedgerSyncColumns 对账允许覆盖的列
var LedgerSyncColumns = []string{
	"connection_id",
	"gross_revenue",
	"refunds",
	"order_count",
	"platform_fee",
	"affiliate_commission",
	"match_percent",
	"synced_at",
	"updated_at",
}

// DailyProductUnits 每日商品销量
type DailyProductUnits struct {
	ID              int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64  `gorm:"not null;uniqueIndex:uniq_units_user_product_date_platform,priority:1" json:"user_id"`
	LedgerProductID int64  `gorm:"not null;uniqueIndex:uniq_units_user_product_date_platform,priority:2" json:"ledger_product_id"`
	Date            string `gorm:"size:10;not null;uniqueIndex:uniq_units_user_product_date_platform,priority:3" json:"date"`
	Platform        string `gorm:"size:32;not null;uniqueIndex:uniq_units_user_product_date_platform,priority:4" json:"platform"`
	LedgerEntryID   int64  `gorm:"index;not null" json:"ledger_entry_id"`
	Units           int    `gorm:"not null;default:0" json:"units"`

	LedgerProduct *LedgerProduct    `gorm:"foreignKey:LedgerProductID;constraint:OnDelete:CASCADE" json:"-"`
	LedgerEntry   *DailyLedgerEntry `gorm:"foreignKey:LedgerEntryID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DailyProductUnits) TableName() string {
	return "daily_product_units"
}

// SyncLog 对账审计记录，可整行覆盖
type SyncLog struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64  `gorm:"not null;uniqueIndex:uniq_synclog_user_date_platform,priority:1" json:"user_id"`
	Date         string `gorm:"size:10;not null;uniqueIndex:uniq_synclog_user_date_platform,priority:2" json:"date"`
	Platform     string `gorm:"size:32;not null;uniqueIndex:uniq_synclog_user_date_platform,priority:3" json:"platform"`
	ConnectionID int64  `gorm:"index" json:"connection_id"`

	EstimatedRevenue    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"estimated_revenue"`
	EstimatedFee        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"estimated_fee"`
	EstimatedCommission decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"estimated_commission"`

	// 无结算单时为 NULL
	SettledRevenue    decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"settled_revenue"`
	SettledFee        decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"settled_fee"`
	SettledCommission decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"settled_commission"`

	MatchPercent int       `gorm:"not null" json:"match_percent"`
	SyncedAt     time.Time `gorm:"not null" json:"synced_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SyncLog) TableName() string {
	return "sync_logs"
}

// AllModels 需要自动迁移的模型
func AllModels() []interface{} {
	return []interface{}{
		&Connection{},
		&Order{},
		&AffiliateOrder{},
		&Settlement{},
		&LedgerProduct{},
		&ProductMapping{},
		&DailyLedgerEntry{},
		&DailyProductUnits{},
		&SyncLog{},
	}
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerQuery 账本查询，日期闭区间 (UTC)
type LedgerQuery struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
}

// LedgerUnitsVO 商品当日销量
type LedgerUnitsVO struct {
	LedgerProductID int64  `json:"ledger_product_id"`
	Name            string `json:"name"`
	Units           int    `json:"units"`
}

// LedgerDayVO 单日账本
type LedgerDayVO struct {
	Date                string          `json:"date"`
	Platform            string          `json:"platform"`
	GrossRevenue        decimal.Decimal `json:"gross_revenue"`
	Refunds             decimal.Decimal `json:"refunds"`
	OrderCount          int             `json:"order_count"`
	PlatformFee         decimal.Decimal `json:"platform_fee"`
	AffiliateCommission decimal.Decimal `json:"affiliate_commission"`
	MatchPercent        int             `json:"match_percent"`
	SyncedAt            *time.Time      `json:"synced_at"`

	PostageCost  decimal.Decimal `json:"postage_cost"`
	PickPackCost decimal.Decimal `json:"pick_pack_cost"`
	AdSpend      decimal.Decimal `json:"ad_spend"`
	Notes        string          `json:"notes"`

	Units []LedgerUnitsVO `json:"units"`
}

// LedgerListResp 账本列表
type LedgerListResp struct {
	Total int           `json:"total"`
	List  []LedgerDayVO `json:"list"`
}

// SyncLogVO 预估值与结算值对照，结算值为空表示当天尚未结算
type SyncLogVO struct {
	Date                string           `json:"date"`
	EstimatedRevenue    decimal.Decimal  `json:"estimated_revenue"`
	EstimatedFee        decimal.Decimal  `json:"estimated_fee"`
	EstimatedCommission decimal.Decimal  `json:"estimated_commission"`
	SettledRevenue      *decimal.Decimal `json:"settled_revenue"`
	SettledFee          *decimal.Decimal `json:"settled_fee"`
	SettledCommission   *decimal.Decimal `json:"settled_commission"`
	MatchPercent        int              `json:"match_percent"`
	SyncedAt            time.Time        `json:"synced_at"`
}

package dto

import "time"

// ==================== 手动同步 ====================

// SyncRequest 手动同步请求，日期为空时使用默认回溯窗口
type SyncRequest struct {
	SyncType  string `json:"sync_type"`  // all, orders, affiliate_orders, settlements, products
	StartDate string `json:"start_date"` // 2025-01-01 (UTC, 含)
	EndDate   string `json:"end_date"`   // 2025-01-07 (UTC, 含)
}

// EntityResultVO 单类实体结果
type EntityResultVO struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Created int    `json:"created,omitempty"`
	Retired int    `json:"retired,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SyncResponse 同步结果
type SyncResponse struct {
	ConnectionID int64                     `json:"connection_id"`
	SyncType     string                    `json:"sync_type"`
	WindowStart  time.Time                 `json:"window_start"`
	WindowEnd    time.Time                 `json:"window_end"`
	Results      map[string]EntityResultVO `json:"results"`
	DurationMs   int64                     `json:"duration_ms"`
}

// ==================== 对账 ====================

// ReconcileRequest 对账请求
type ReconcileRequest struct {
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	PlatformFeePercent *float64 `json:"platform_fee_percent"` // 为空使用配置值
}

// ReconcileResponse 对账结果
type ReconcileResponse struct {
	ConnectionID int64    `json:"connection_id"`
	DaysUpdated  int      `json:"days_updated"`
	Days         []string `json:"days"`
}

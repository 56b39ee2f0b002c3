package model

import (
	"time"
)

// 同步状态
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

// Connection 用户授权的外部店铺
// token 字段只由 TokenService 写入，状态字段只由 SyncService 写入
type Connection struct {
	BaseModel
	UserID   int64  `gorm:"index;not null" json:"user_id"`
	Platform string `gorm:"size:32;not null;default:tiktok" json:"platform"`

	// 授权身份
	OpenID     string `gorm:"size:128;index" json:"open_id"`
	SellerName string `gorm:"size:255" json:"seller_name"`

	// 凭证
	AccessToken           string    `gorm:"type:text" json:"-"`
	RefreshToken          string    `gorm:"type:text" json:"-"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`

	// 店铺 (首次同步时发现)
	ShopCipher string `gorm:"size:255" json:"-"`
	ShopID     string `gorm:"size:64" json:"shop_id"`
	ShopName   string `gorm:"size:255" json:"shop_name"`
	ShopRegion string `gorm:"size:16" json:"shop_region"`

	// 同步状态
	SyncStatus string     `gorm:"size:16;not null;default:idle" json:"sync_status"`
	SyncError  string     `gorm:"type:text" json:"sync_error"`
	LastSyncAt *time.Time `json:"last_sync_at"`
}

func (Connection) TableName() string {
	return "platform_connections"
}

// NeedsShopDiscovery 缺少 cipher 时需先查询已授权店铺
func (c *Connection) NeedsShopDiscovery() bool {
	return c.ShopCipher == ""
}

// TokenValidFor access token 在 margin 之后是否仍有效
func (c *Connection) TokenValidFor(now time.Time, margin time.Duration) bool {
	return c.AccessToken != "" && c.AccessTokenExpiresAt.After(now.Add(margin))
}

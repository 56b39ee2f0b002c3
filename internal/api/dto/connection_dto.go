package dto

import "time"

// ConnectionVO 店铺连接视图，不含凭证
type ConnectionVO struct {
	ID                   int64      `json:"id"`
	Platform             string     `json:"platform"`
	SellerName           string     `json:"seller_name"`
	ShopID               string     `json:"shop_id"`
	ShopName             string     `json:"shop_name"`
	ShopRegion           string     `json:"shop_region"`
	SyncStatus           string     `json:"sync_status"`
	SyncError            string     `json:"sync_error,omitempty"`
	LastSyncAt           *time.Time `json:"last_sync_at"`
	AccessTokenExpiresAt time.Time  `json:"access_token_expires_at"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ConnectionListResp 连接列表
type ConnectionListResp struct {
	Total int            `json:"total"`
	List  []ConnectionVO `json:"list"`
}

// AuthorizeResp 授权链接
type AuthorizeResp struct {
	URL string `json:"url"`
}

// OAuthCallbackReq 授权回调参数
type OAuthCallbackReq struct {
	Code  string `form:"code" binding:"required"`
	State string `form:"state" binding:"required"`
}

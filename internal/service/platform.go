package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"accelerator_sync_v1/pkg/tiktok"
)

// PlatformClient 平台开放接口 (*tiktok.Client 实现)
type PlatformClient interface {
	ExchangeAuthCode(ctx context.Context, code string) (*tiktok.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*tiktok.TokenPair, error)
	ListAuthorizedShops(ctx context.Context, accessToken string) ([]tiktok.Shop, error)
	ListOrders(ctx context.Context, accessToken, shopCipher string, w tiktok.Window, pageSize int, cursor string) (*tiktok.Page[tiktok.Order], error)
	ListAffiliateOrders(ctx context.Context, accessToken, shopCipher string, w tiktok.Window, pageSize int, cursor string) (*tiktok.Page[tiktok.AffiliateOrder], error)
	ListSettlements(ctx context.Context, accessToken, shopCipher string, w tiktok.Window, pageSize int, cursor string) (*tiktok.Page[tiktok.Settlement], error)
	ListProducts(ctx context.Context, accessToken, shopCipher string, w tiktok.Window, pageSize int, cursor string) (*tiktok.Page[tiktok.Product], error)
}

var _ PlatformClient = (*tiktok.Client)(nil)

// 业务错误
var (
	ErrConnectionNotFound = errors.New("店铺连接不存在")
	ErrTokenExpired       = errors.New("access token 已过期且刷新失败，请重新授权")
	ErrNoAuthorizedShops  = errors.New("未找到已授权的店铺，请在卖家后台重新授权")
	ErrInvalidSyncType    = errors.New("无效的同步类型")
	ErrInvalidWindow      = errors.New("无效的时间窗口")
	ErrInvalidState       = errors.New("授权超时或 state 无效，请重新发起")
)

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConnectionNotFound
	}
	return err
}

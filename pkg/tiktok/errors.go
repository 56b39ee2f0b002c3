package tiktok

import (
	"errors"
	"fmt"
)

// 配置错误，启动阶段即失败
var (
	ErrMissingAppKey    = errors.New("tiktok: app key is required")
	ErrMissingAppSecret = errors.New("tiktok: app secret is required")
)

// ErrRefreshRejected 平台明确拒绝刷新 (refresh token 已失效/被吊销)，重试无意义
var ErrRefreshRejected = errors.New("tiktok: refresh token rejected")

// 平台业务错误码
const (
	CodeOK                 = 0
	CodeAccessTokenExpired = 105002
	CodeScopeNotGranted    = 105005
	CodeShopNotAuthorized  = 105007
)

// UpstreamAPIError 平台返回非 0 code
type UpstreamAPIError struct {
	Endpoint  string
	Code      int
	Message   string
	RequestID string

	// cause 用于挂载 ErrRefreshRejected 等分类哨兵
	cause error
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("tiktok %s: code=%d message=%s request_id=%s", e.Endpoint, e.Code, e.Message, e.RequestID)
}

func (e *UpstreamAPIError) Unwrap() error {
	return e.cause
}

// IsScopeNotGranted 判断是否为未授权的 scope (联盟/结算权限常见)
func IsScopeNotGranted(err error) bool {
	var apiErr *UpstreamAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeScopeNotGranted || apiErr.Code == CodeShopNotAuthorized
}

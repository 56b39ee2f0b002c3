package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	headerAccessToken = "x-tts-access-token"

	pathTokenGet      = "/api/v2/token/get"
	pathTokenRefresh  = "/api/v2/token/refresh"
	pathShops         = "/authorization/202309/shops"
	pathOrderSearch   = "/order/202309/orders/search"
	pathSettlements   = "/finance/202309/settlements/search"
	pathProductSearch = "/product/202309/products/search"
	pathAffiliateList = "/affiliate_seller/202410/orders/search"

	defaultAPIBaseURL  = "https://open-api.tiktokglobalshop.com"
	defaultAuthBaseURL = "https://auth.tiktok-shops.com"
	defaultTimeout     = 20 * time.Second
)

// Config 平台客户端配置
type Config struct {
	AppKey      string
	AppSecret   string
	APIBaseURL  string
	AuthBaseURL string
	Timeout     time.Duration
	Debug       bool
}

// Client 平台 API 客户端
// 只负责签名、发送与解析，不做任何重试
type Client struct {
	cfg    Config
	signer *Signer
	http   *resty.Client

	// now 便于测试固定时间戳
	now func() time.Time
}

// NewClient 创建客户端，缺少 app key / secret 直接返回配置错误
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AppKey) == "" {
		return nil, ErrMissingAppKey
	}
	signer, err := NewSigner(cfg.AppSecret)
	if err != nil {
		return nil, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = defaultAuthBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.AuthBaseURL = strings.TrimRight(cfg.AuthBaseURL, "/")

	httpClient := resty.New().
		SetDebug(cfg.Debug).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "Accelerator-Sync/1.0").
		SetHeader("Content-Type", "application/json")

	return &Client{
		cfg:    cfg,
		signer: signer,
		http:   httpClient,
		now:    time.Now,
	}, nil
}

// AppKey 授权链接需要
func (c *Client) AppKey() string {
	return c.cfg.AppKey
}

// ==================== 授权 ====================

// ExchangeAuthCode 授权码换 token
func (c *Client) ExchangeAuthCode(ctx context.Context, code string) (*TokenPair, error) {
	query := map[string]string{
		"auth_code":  code,
		"grant_type": "authorized_code",
	}
	var pair TokenPair
	if err := c.call(ctx, http.MethodGet, c.cfg.AuthBaseURL, pathTokenGet, query, nil, "", &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// RefreshToken 刷新 token
// 平台返回非 0 code 视为明确拒绝 (ErrRefreshRejected)，网络错误则原样返回
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	query := map[string]string{
		"refresh_token": refreshToken,
		"grant_type":    "refresh_token",
	}
	var pair TokenPair
	err := c.call(ctx, http.MethodGet, c.cfg.AuthBaseURL, pathTokenRefresh, query, nil, "", &pair)
	if err != nil {
		var apiErr *UpstreamAPIError
		if errors.As(err, &apiErr) {
			apiErr.cause = ErrRefreshRejected
		}
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, &UpstreamAPIError{Endpoint: pathTokenRefresh, Message: "empty access token", cause: ErrRefreshRejected}
	}
	return &pair, nil
}

// ListAuthorizedShops 获取已授权店铺 (含 cipher)
func (c *Client) ListAuthorizedShops(ctx context.Context, accessToken string) ([]Shop, error) {
	var data shopsData
	if err := c.call(ctx, http.MethodGet, c.cfg.APIBaseURL, pathShops, nil, nil, accessToken, &data); err != nil {
		return nil, err
	}
	return data.Shops, nil
}

// ==================== 分页列表 ====================

// ListOrders 按创建时间窗口搜索订单
func (c *Client) ListOrders(ctx context.Context, accessToken, shopCipher string, w Window, pageSize int, cursor string) (*Page[Order], error) {
	body := map[string]any{
		"create_time_ge": w.Start.Unix(),
		"create_time_lt": w.End.Unix(),
	}
	return searchPage[Order](ctx, c, pathOrderSearch, accessToken, shopCipher, pageSize, cursor, body,
		func(d *listData) json.RawMessage { return d.Orders })
}

// ListSettlements 按结算时间窗口搜索结算单
func (c *Client) ListSettlements(ctx context.Context, accessToken, shopCipher string, w Window, pageSize int, cursor string) (*Page[Settlement], error) {
	body := map[string]any{
		"settlement_time_ge": w.Start.Unix(),
		"settlement_time_lt": w.End.Unix(),
	}
	return searchPage[Settlement](ctx, c, pathSettlements, accessToken, shopCipher, pageSize, cursor, body,
		func(d *listData) json.RawMessage { return d.Settlements })
}

// ListProducts 搜索全部商品，窗口为零值时不限更新时间
// 下架商品也要返回，否则会被误判为"已消失"
func (c *Client) ListProducts(ctx context.Context, accessToken, shopCipher string, w Window, pageSize int, cursor string) (*Page[Product], error) {
	body := map[string]any{"status": "ALL"}
	if !w.Start.IsZero() {
		body["update_time_ge"] = w.Start.Unix()
	}
	if !w.End.IsZero() {
		body["update_time_lt"] = w.End.Unix()
	}
	return searchPage[Product](ctx, c, pathProductSearch, accessToken, shopCipher, pageSize, cursor, body,
		func(d *listData) json.RawMessage { return d.Products })
}

// ListAffiliateOrders 联盟订单 (GET，窗口放在 query 中)
func (c *Client) ListAffiliateOrders(ctx context.Context, accessToken, shopCipher string, w Window, pageSize int, cursor string) (*Page[AffiliateOrder], error) {
	query := pageQuery(shopCipher, pageSize, cursor)
	query["create_time_ge"] = strconv.FormatInt(w.Start.Unix(), 10)
	query["create_time_lt"] = strconv.FormatInt(w.End.Unix(), 10)

	var data listData
	if err := c.call(ctx, http.MethodGet, c.cfg.APIBaseURL, pathAffiliateList, query, nil, accessToken, &data); err != nil {
		return nil, err
	}
	return decodePage[AffiliateOrder](pathAffiliateList, &data, data.Orders)
}

// searchPage POST 搜索类接口的公共流程
func searchPage[T any](ctx context.Context, c *Client, path, accessToken, shopCipher string, pageSize int, cursor string,
	body map[string]any, items func(*listData) json.RawMessage) (*Page[T], error) {

	var data listData
	if err := c.call(ctx, http.MethodPost, c.cfg.APIBaseURL, path, pageQuery(shopCipher, pageSize, cursor), body, accessToken, &data); err != nil {
		return nil, err
	}
	return decodePage[T](path, &data, items(&data))
}

func decodePage[T any](path string, data *listData, raw json.RawMessage) (*Page[T], error) {
	page := &Page[T]{NextCursor: data.NextPageToken, Total: data.TotalCount}
	if len(raw) == 0 || string(raw) == "null" {
		return page, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("tiktok %s: decode items failed: %w", path, err)
	}
	page.Items = make([]T, 0, len(elems))
	for i, elem := range elems {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			return nil, fmt.Errorf("tiktok %s: decode item %d failed: %w", path, i, err)
		}
		if k, ok := any(&item).(rawKeeper); ok {
			k.keepRaw(elem)
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func pageQuery(shopCipher string, pageSize int, cursor string) map[string]string {
	query := map[string]string{"shop_cipher": shopCipher}
	if pageSize > 0 {
		query["page_size"] = strconv.Itoa(pageSize)
	}
	if cursor != "" {
		query["page_token"] = cursor
	}
	return query
}

// ==================== 底层请求 ====================

// call 组装公共参数、签名、发送并解析 envelope
// accessToken 只放 header，不参与签名
func (c *Client) call(ctx context.Context, method, baseURL, path string, query map[string]string, body any, accessToken string, out any) error {
	params := make(map[string]string, len(query)+3)
	for k, v := range query {
		params[k] = v
	}
	params["app_key"] = c.cfg.AppKey
	params["timestamp"] = strconv.FormatInt(c.now().Unix(), 10)

	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("tiktok %s: encode body failed: %w", path, err)
		}
		raw = b
	}
	params[paramSign] = c.signer.Sign(path, params, raw)

	req := c.http.R().SetContext(ctx).SetQueryParams(params)
	if accessToken != "" {
		req.SetHeader(headerAccessToken, accessToken)
	}
	if raw != nil {
		req.SetBody(raw)
	}

	resp, err := req.Execute(method, baseURL+path)
	if err != nil {
		return fmt.Errorf("tiktok %s: request failed: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("tiktok %s: decode response failed (http %d): %w", path, resp.StatusCode(), err)
	}
	if env.Code != CodeOK {
		return &UpstreamAPIError{
			Endpoint:  path,
			Code:      env.Code,
			Message:   env.Message,
			RequestID: env.RequestID,
		}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("tiktok %s: decode data failed: %w", path, err)
	}
	return nil
}

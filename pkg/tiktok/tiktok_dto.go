package tiktok

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ==========================================
// DTO: 用于接收平台 API 返回的原始 JSON 数据
// ==========================================

// envelope 通用响应外壳
type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// Money 平台金额统一以字符串返回，如 "12.30"
type Money string

// Decimal 解析金额，缺失或格式错误一律按 0 处理
func (m Money) Decimal() decimal.Decimal {
	s := strings.TrimSpace(string(m))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// UnmarshalJSON 字符串、数字、null 均可，其它类型按空处理
func (m *Money) UnmarshalJSON(b []byte) error {
	*m = Money(scalarText(b))
	return nil
}

// Count 数量字段，平台偶尔以字符串返回
type Count int

// UnmarshalJSON 无法解析时按 0
func (c *Count) UnmarshalJSON(b []byte) error {
	*c = Count(parseInt(scalarText(b)))
	return nil
}

// UnixTime 平台时间戳 (秒)
type UnixTime int64

// UnmarshalJSON 兼容字符串形式的时间戳
func (t *UnixTime) UnmarshalJSON(b []byte) error {
	*t = UnixTime(parseInt(scalarText(b)))
	return nil
}

// Time 转为 UTC 时间，0 返回零值
func (t UnixTime) Time() time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(t), 0).UTC()
}

// scalarText 取 JSON 标量的文本：字符串去引号，数字原样，其余为空
func scalarText(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(b)
	default:
		return ""
	}
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// ==================== 授权 ====================

// TokenPair token 换取/刷新结果
type TokenPair struct {
	AccessToken          string   `json:"access_token"`
	AccessTokenExpireIn  UnixTime `json:"access_token_expire_in"`
	RefreshToken         string   `json:"refresh_token"`
	RefreshTokenExpireIn UnixTime `json:"refresh_token_expire_in"`
	OpenID               string   `json:"open_id"`
	SellerName           string   `json:"seller_name"`
	SellerBaseRegion     string   `json:"seller_base_region"`
}

// AccessTokenExpiresAt access token 过期时间点
func (p *TokenPair) AccessTokenExpiresAt() time.Time {
	return p.AccessTokenExpireIn.Time()
}

// RefreshTokenExpiresAt refresh token 过期时间点
func (p *TokenPair) RefreshTokenExpiresAt() time.Time {
	return p.RefreshTokenExpireIn.Time()
}

// Shop 已授权店铺
// GET /authorization/202309/shops
type Shop struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Region     string `json:"region"`
	SellerType string `json:"seller_type"`
	Cipher     string `json:"cipher"`
	Code       string `json:"code"`
}

type shopsData struct {
	Shops []Shop `json:"shops"`
}

// ==================== 订单 ====================

// OrderPayment 订单金额
type OrderPayment struct {
	Currency             string `json:"currency"`
	TotalAmount          Money  `json:"total_amount"`
	SubTotal             Money  `json:"sub_total"`
	ShippingFee          Money  `json:"shipping_fee"`
	SellerDiscount       Money  `json:"seller_discount"`
	PlatformDiscount     Money  `json:"platform_discount"`
	OriginalTotalProduct Money  `json:"original_total_product_price"`
	ShippingFeeDiscount  Money  `json:"shipping_fee_platform_discount"`
	RefundAmount         Money  `json:"refund_amount"`
}

// OrderLineItem 订单行
type OrderLineItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SkuID       string `json:"sku_id"`
	SellerSku   string `json:"seller_sku"`
	Quantity    Count  `json:"quantity"`
	SalePrice   Money  `json:"sale_price"`
}

// Order 订单
// POST /order/202309/orders/search
type Order struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	CreateTime UnixTime        `json:"create_time"`
	PaidTime   UnixTime        `json:"paid_time"`
	UpdateTime UnixTime        `json:"update_time"`
	Payment    OrderPayment    `json:"payment"`
	LineItems  []OrderLineItem `json:"line_items"`
	BuyerEmail string          `json:"buyer_email"`

	// Raw 平台原始报文，落库时原样保存
	Raw json.RawMessage `json:"-"`
}

func (o *Order) keepRaw(raw json.RawMessage) { o.Raw = raw }

// ==================== 联盟订单 ====================

// AffiliateOrder 联盟 (达人带货) 订单
// GET /affiliate_seller/202410/orders/search
type AffiliateOrder struct {
	OrderID             string   `json:"order_id"`
	CollaborationType   string   `json:"collaboration_type"`
	ProductID           string   `json:"product_id"`
	SkuID               string   `json:"sku_id"`
	CreatorUsername     string   `json:"creator_username"`
	CreatorOpenID       string   `json:"creator_open_id"`
	CommissionRate      Money    `json:"commission_rate"`
	EstimatedCommission Money    `json:"estimated_commission_amount"`
	ActualCommission    Money    `json:"actual_commission_amount"`
	OrderAmount         Money    `json:"order_amount"`
	Currency            string   `json:"currency"`
	CreateTime          UnixTime `json:"create_time"`
}

// CommissionAmount 已结算佣金优先，否则取预估佣金
func (o *AffiliateOrder) CommissionAmount() decimal.Decimal {
	if actual := o.ActualCommission.Decimal(); !actual.IsZero() {
		return actual
	}
	return o.EstimatedCommission.Decimal()
}

// ==================== 结算 ====================

// Settlement 结算单
// POST /finance/202309/settlements/search
type Settlement struct {
	ID                  string   `json:"id"`
	SettlementAmount    Money    `json:"settlement_amount"`
	RevenueAmount       Money    `json:"revenue_amount"`
	PlatformFeeAmount   Money    `json:"fee_amount"`
	AffiliateCommission Money    `json:"affiliate_commission_amount"`
	ShippingSubsidy     Money    `json:"shipping_subsidy_amount"`
	RefundAmount        Money    `json:"refund_amount"`
	AdjustmentAmount    Money    `json:"adjustment_amount"`
	Currency            string   `json:"currency"`
	SettlementTime      UnixTime `json:"settlement_time"`
}

// ==================== 商品 ====================

// ProductSku 商品 SKU
type ProductSku struct {
	ID        string `json:"id"`
	SellerSku string `json:"seller_sku"`
	Price     struct {
		Currency    string `json:"currency"`
		SalePrice   Money  `json:"sale_price"`
		TaxExcluded Money  `json:"tax_exclusive_price"`
	} `json:"price"`
}

// Product 商品
// POST /product/202309/products/search
type Product struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Status     string       `json:"status"`
	Skus       []ProductSku `json:"skus"`
	CreateTime UnixTime     `json:"create_time"`
	UpdateTime UnixTime     `json:"update_time"`
}

// ==================== 分页 ====================

// listData 列表接口 data 结构，各接口仅 items 字段名不同
type listData struct {
	NextPageToken string          `json:"next_page_token"`
	TotalCount    int64           `json:"total_count"`
	Orders        json.RawMessage `json:"orders"`
	Settlements   json.RawMessage `json:"settlements"`
	Products      json.RawMessage `json:"products"`
}

// Window 拉取时间窗口，左闭右开
type Window struct {
	Start time.Time
	End   time.Time
}

// rawKeeper 需要保留原始报文的条目
type rawKeeper interface {
	keepRaw(raw json.RawMessage)
}

// Page 一页数据
type Page[T any] struct {
	Items      []T
	NextCursor string
	Total      int64
}

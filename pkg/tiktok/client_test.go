package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== 测试辅助 ====================

const (
	testAppKey    = "test-key"
	testAppSecret = "test-secret"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		AppKey:      testAppKey,
		AppSecret:   testAppSecret,
		APIBaseURL:  srv.URL,
		AuthBaseURL: srv.URL,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(envelope{Code: code, Message: message, RequestID: "req-1", Data: raw})
}

// verifySignature 服务端按同样规则复算签名
func verifySignature(t *testing.T, r *http.Request, body []byte) {
	t.Helper()
	signer, _ := NewSigner(testAppSecret)
	params := map[string]string{}
	for k, v := range r.URL.Query() {
		params[k] = v[0]
	}
	assert.Equal(t, signer.Sign(r.URL.Path, params, body), params["sign"], "签名校验失败: %s", r.URL.Path)
	assert.Equal(t, testAppKey, params["app_key"])
	assert.Equal(t, "1700000000", params["timestamp"])
	_, leaked := params["access_token"]
	assert.False(t, leaked, "access token 不应出现在 query 中")
}

// ==================== 单元测试 ====================

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(Config{AppSecret: "s"})
	assert.ErrorIs(t, err, ErrMissingAppKey)

	_, err = NewClient(Config{AppKey: "k"})
	assert.ErrorIs(t, err, ErrMissingAppSecret)
}

func TestClient_ListOrders_PaginationCompleteness(t *testing.T) {
	pages := map[string]struct {
		ids  []string
		next string
	}{
		"":   {ids: []string{"o1", "o2"}, next: "p2"},
		"p2": {ids: []string{"o3", "o4"}, next: "p3"},
		"p3": {ids: []string{"o5", "o6"}, next: ""},
	}
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathOrderSearch, r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get(headerAccessToken))
		assert.Equal(t, "cipher-1", r.URL.Query().Get("shop_cipher"))

		body, _ := io.ReadAll(r.Body)
		verifySignature(t, r, body)

		p := pages[r.URL.Query().Get("page_token")]
		orders := make([]Order, 0, len(p.ids))
		for _, id := range p.ids {
			orders = append(orders, Order{ID: id, Payment: OrderPayment{TotalAmount: "10.00"}})
		}
		writeEnvelope(w, 0, "Success", map[string]any{
			"next_page_token": p.next,
			"total_count":     6,
			"orders":          orders,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	window := Window{Start: time.Unix(1699000000, 0), End: time.Unix(1700000000, 0)}

	all, err := FetchAll(context.Background(), func(ctx context.Context, cursor string) (*Page[Order], error) {
		return c.ListOrders(ctx, "tok-1", "cipher-1", window, 2, cursor)
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(all))
	for _, o := range all {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"o1", "o2", "o3", "o4", "o5", "o6"}, ids)
	assert.Equal(t, 3, calls)
}

func TestPaginate_AbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	n, err := Paginate(context.Background(), func(ctx context.Context, cursor string) (*Page[int], error) {
		calls++
		if cursor == "2" {
			return nil, boom
		}
		return &Page[int]{Items: []int{1, 2}, NextCursor: "2"}, nil
	}, func(int) error { return nil })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, calls)
}

func TestPaginate_NoPageCap(t *testing.T) {
	const total = 250
	n, err := Paginate(context.Background(), func(ctx context.Context, cursor string) (*Page[int], error) {
		var i int
		fmt.Sscanf(cursor, "%d", &i)
		next := ""
		if i+1 < total {
			next = fmt.Sprint(i + 1)
		}
		return &Page[int]{Items: []int{i}, NextCursor: next}, nil
	}, func(int) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, total, n)
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, CodeScopeNotGranted, "scope not granted", nil)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ListAffiliateOrders(context.Background(), "tok", "cipher", Window{Start: time.Now().Add(-time.Hour), End: time.Now()}, 10, "")

	var apiErr *UpstreamAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeScopeNotGranted, apiErr.Code)
	assert.Equal(t, pathAffiliateList, apiErr.Endpoint)
	assert.Equal(t, "req-1", apiErr.RequestID)
	assert.True(t, IsScopeNotGranted(err))
	assert.False(t, errors.Is(err, ErrRefreshRejected))
}

func TestClient_RefreshToken(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, pathTokenRefresh, r.URL.Path)
			verifySignature(t, r, nil)
			assert.Equal(t, "rt-old", r.URL.Query().Get("refresh_token"))
			writeEnvelope(w, 0, "success", TokenPair{
				AccessToken:          "at-new",
				AccessTokenExpireIn:  1700086400,
				RefreshToken:         "rt-new",
				RefreshTokenExpireIn: 1702592000,
			})
		}))
		defer srv.Close()

		pair, err := newTestClient(t, srv).RefreshToken(context.Background(), "rt-old")
		require.NoError(t, err)
		assert.Equal(t, "at-new", pair.AccessToken)
		assert.Equal(t, "rt-new", pair.RefreshToken)
		assert.Equal(t, time.Unix(1700086400, 0).UTC(), pair.AccessTokenExpiresAt())
	})

	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, 36004004, "refresh token is invalid", nil)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv).RefreshToken(context.Background(), "rt-revoked")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRefreshRejected)
	})

	t.Run("transport failure is not a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		c, err := NewClient(Config{AppKey: testAppKey, AppSecret: testAppSecret, AuthBaseURL: srv.URL, Timeout: time.Second})
		require.NoError(t, err)
		_, err = c.RefreshToken(context.Background(), "rt")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrRefreshRejected))
	})
}

func TestClient_ListAuthorizedShops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		verifySignature(t, r, nil)
		assert.Equal(t, "tok", r.Header.Get(headerAccessToken))
		writeEnvelope(w, 0, "success", map[string]any{
			"shops": []Shop{{ID: "7001", Name: "Demo Shop", Region: "US", Cipher: "ROW_xyz"}},
		})
	}))
	defer srv.Close()

	shops, err := newTestClient(t, srv).ListAuthorizedShops(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, "ROW_xyz", shops[0].Cipher)
}

func TestMoney_Decimal(t *testing.T) {
	assert.True(t, Money("").Decimal().IsZero())
	assert.True(t, Money("n/a").Decimal().IsZero())
	assert.Equal(t, "12.3", Money(" 12.30 ").Decimal().String())
}

// ==================== 各接口报文格式 ====================

func TestClient_ListOrders_LenientFieldsKeepRaw(t *testing.T) {
	const orderJSON = `{"id":"o1","status":"COMPLETED","create_time":"1700000000",` +
		`"payment":{"currency":"USD","total_amount":12.5,"sub_total":null,"refund_amount":{"bad":1}},` +
		`"line_items":[{"product_id":"p1","quantity":"3","sale_price":"4.5"},{"product_id":"p2","quantity":"x"}],` +
		`"tracking_number":"TRK-9","recipient_address":{"city":"Austin"}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":0,"message":"Success","request_id":"req-1","data":{"orders":[`+orderJSON+`]}}`)
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv).ListOrders(context.Background(), "tok", "cipher", Window{Start: time.Unix(1, 0), End: time.Unix(2, 0)}, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	o := page.Items[0]
	assert.Equal(t, "12.5", o.Payment.TotalAmount.Decimal().String())
	assert.True(t, o.Payment.SubTotal.Decimal().IsZero())
	assert.True(t, o.Payment.RefundAmount.Decimal().IsZero())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), o.CreateTime.Time())
	require.Len(t, o.LineItems, 2)
	assert.Equal(t, Count(3), o.LineItems[0].Quantity)
	assert.Equal(t, Count(0), o.LineItems[1].Quantity)

	// 原始报文原样保留，包括未建模字段
	assert.JSONEq(t, orderJSON, string(o.Raw))
}

func TestClient_ListSettlements_WireFormat(t *testing.T) {
	window := Window{Start: time.Unix(1699000000, 0), End: time.Unix(1700000000, 0)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathSettlements, r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get(headerAccessToken))
		assert.Equal(t, "cipher", r.URL.Query().Get("shop_cipher"))
		assert.Equal(t, "20", r.URL.Query().Get("page_size"))

		body, _ := io.ReadAll(r.Body)
		verifySignature(t, r, body)
		assert.JSONEq(t, `{"settlement_time_ge":1699000000,"settlement_time_lt":1700000000}`, string(body))

		writeEnvelope(w, 0, "success", map[string]any{
			"settlements": []Settlement{{ID: "s1", PlatformFeeAmount: "-4.40", SettlementTime: 1699500000}},
		})
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv).ListSettlements(context.Background(), "tok", "cipher", window, 20, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "-4.4", page.Items[0].PlatformFeeAmount.Decimal().String())
}

func TestClient_ListProducts_WireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathProductSearch, r.URL.Path)
		assert.Equal(t, "next-1", r.URL.Query().Get("page_token"))

		body, _ := io.ReadAll(r.Body)
		verifySignature(t, r, body)
		// 零值窗口不带更新时间
		assert.JSONEq(t, `{"status":"ALL"}`, string(body))

		writeEnvelope(w, 0, "success", map[string]any{
			"products": []Product{{ID: "p1", Title: "Mug", Status: "ACTIVATE"}},
		})
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv).ListProducts(context.Background(), "tok", "cipher", Window{}, 50, "next-1")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Mug", page.Items[0].Title)
	assert.Empty(t, page.NextCursor)
}

func TestClient_ListAffiliateOrders_WireFormat(t *testing.T) {
	window := Window{Start: time.Unix(1699000000, 0), End: time.Unix(1700000000, 0)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, pathAffiliateList, r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		verifySignature(t, r, nil)

		q := r.URL.Query()
		assert.Equal(t, "1699000000", q.Get("create_time_ge"))
		assert.Equal(t, "1700000000", q.Get("create_time_lt"))
		assert.Equal(t, "cipher", q.Get("shop_cipher"))

		writeEnvelope(w, 0, "success", map[string]any{
			"orders": []AffiliateOrder{{OrderID: "o1", EstimatedCommission: "1.50"}},
		})
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv).ListAffiliateOrders(context.Background(), "tok", "cipher", window, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1.5", page.Items[0].CommissionAmount().String())
}

func TestClient_ExchangeAuthCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, pathTokenGet, r.URL.Path)
		assert.Empty(t, r.Header.Get(headerAccessToken))
		verifySignature(t, r, nil)
		assert.Equal(t, "code-1", r.URL.Query().Get("auth_code"))
		assert.Equal(t, "authorized_code", r.URL.Query().Get("grant_type"))

		writeEnvelope(w, 0, "success", TokenPair{
			AccessToken: "at-1", AccessTokenExpireIn: 1700086400,
			RefreshToken: "rt-1", OpenID: "open-1", SellerName: "Demo",
		})
	}))
	defer srv.Close()

	pair, err := newTestClient(t, srv).ExchangeAuthCode(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", pair.AccessToken)
	assert.Equal(t, "open-1", pair.OpenID)
}

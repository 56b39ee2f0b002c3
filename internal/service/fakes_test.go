package service

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/repository"
	"accelerator_sync_v1/pkg/database"
	"accelerator_sync_v1/pkg/tiktok"
)

// ==================== 测试辅助 ====================

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(database.Options{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}, zap.NewNop(), model.AllModels()...)
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// createConnection 已授权且 token 有效的连接
func createConnection(t *testing.T, db *gorm.DB, userID int64, cipher string) *model.Connection {
	t.Helper()
	conn := &model.Connection{
		UserID:                userID,
		Platform:              "tiktok",
		AccessToken:           "at-valid",
		RefreshToken:          "rt-valid",
		AccessTokenExpiresAt:  time.Now().Add(24 * time.Hour),
		RefreshTokenExpiresAt: time.Now().Add(30 * 24 * time.Hour),
		ShopCipher:            cipher,
		SyncStatus:            model.SyncStatusIdle,
	}
	if err := db.Create(conn).Error; err != nil {
		t.Fatalf("创建连接失败: %v", err)
	}
	return conn
}

// ==================== 平台 Fake ====================

// fakePlatform 内存版平台，按 offset 游标分页
type fakePlatform struct {
	mu sync.Mutex

	shops    []tiktok.Shop
	shopsErr error

	orders    []tiktok.Order
	ordersErr error

	affiliates   []tiktok.AffiliateOrder
	affiliateErr error

	settlements   []tiktok.Settlement
	settlementErr error

	products []tiktok.Product
	// productsFailPage > 0 时在第 N 页返回错误
	productsFailPage int

	refresh      func(refreshToken string) (*tiktok.TokenPair, error)
	refreshCalls atomic.Int32

	exchange func(code string) (*tiktok.TokenPair, error)
}

func pageOf[T any](items []T, cursor string, size int) *tiktok.Page[T] {
	start, _ := strconv.Atoi(cursor)
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	page := &tiktok.Page[T]{Items: append([]T(nil), items[start:end]...), Total: int64(len(items))}
	if end < len(items) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page
}

func (f *fakePlatform) ExchangeAuthCode(ctx context.Context, code string) (*tiktok.TokenPair, error) {
	return f.exchange(code)
}

func (f *fakePlatform) RefreshToken(ctx context.Context, refreshToken string) (*tiktok.TokenPair, error) {
	f.refreshCalls.Add(1)
	return f.refresh(refreshToken)
}

func (f *fakePlatform) ListAuthorizedShops(ctx context.Context, accessToken string) ([]tiktok.Shop, error) {
	return f.shops, f.shopsErr
}

func (f *fakePlatform) ListOrders(ctx context.Context, accessToken, shopCipher string, w tiktok.Window, pageSize int, cursor string) (*tiktok.Page[tiktok.Order], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return pageOf(f.orders, cursor, pageSize), nil
}

func (f *fakePlatform) ListAffiliateOrders(ctx context.Context, accessToken, shopCipher string, w tiktok.Window, pageSize int, cursor string) (*tiktok.Page[tiktok.AffiliateOrder], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.affiliateErr != nil {
		return nil, f.affiliateErr
	}
	return pageOf(f.affiliates, cursor, pageSize), nil
}

func (f *fakePlatform) ListSettlements(ctx context.Context, accessToken, shopCipher string, w tiktok.Window, pageSize int, cursor string) (*tiktok.Page[tiktok.Settlement], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settlementErr != nil {
		return nil, f.settlementErr
	}
	return pageOf(f.settlements, cursor, pageSize), nil
}

func (f *fakePlatform) ListProducts(ctx context.Context, accessToken, shopCipher string, w tiktok.Window, pageSize int, cursor string) (*tiktok.Page[tiktok.Product], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsFailPage > 0 {
		start, _ := strconv.Atoi(cursor)
		if start/pageSize+1 == f.productsFailPage {
			return nil, &tiktok.UpstreamAPIError{Endpoint: "/product/202309/products/search", Code: 50001, Message: "internal error"}
		}
	}
	return pageOf(f.products, cursor, pageSize), nil
}

// ==================== 组装 ====================

type testEnv struct {
	db        *gorm.DB
	platform  *fakePlatform
	tokens    *TokenService
	sync      *SyncService
	reconcile *ReconcileService

	connRepo    repository.ConnectionRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	ledgerRepo  repository.LedgerRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupServiceDB(t)
	fp := &fakePlatform{}
	log := zap.NewNop()

	connRepo := repository.NewConnectionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	affRepo := repository.NewAffiliateOrderRepository(db)
	settleRepo := repository.NewSettlementRepository(db)
	productRepo := repository.NewProductRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	tokens := NewTokenService(connRepo, fp, NewKeyedMutex(), log)
	notifier := NewLogNotifier(log)

	syncSvc := NewSyncService(SyncServiceDeps{
		ConnRepo:       connRepo,
		OrderRepo:      orderRepo,
		AffiliateRepo:  affRepo,
		SettlementRepo: settleRepo,
		ProductRepo:    productRepo,
		Tokens:         tokens,
		Client:         fp,
		Notifier:       notifier,
	}, SyncConfig{PageSize: 2, Platform: "tiktok"}, log)

	reconcileSvc := NewReconcileService(ReconcileServiceDeps{
		ConnRepo:       connRepo,
		OrderRepo:      orderRepo,
		AffiliateRepo:  affRepo,
		SettlementRepo: settleRepo,
		ProductRepo:    productRepo,
		LedgerRepo:     ledgerRepo,
		Notifier:       notifier,
	}, "tiktok", log)

	return &testEnv{
		db:          db,
		platform:    fp,
		tokens:      tokens,
		sync:        syncSvc,
		reconcile:   reconcileSvc,
		connRepo:    connRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		ledgerRepo:  ledgerRepo,
	}
}

func testWindow() tiktok.Window {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return tiktok.Window{Start: start, End: start.AddDate(0, 0, 7)}
}

func unix(t time.Time) tiktok.UnixTime {
	return tiktok.UnixTime(t.Unix())
}

// countOrders 直接查库统计订单数
func countOrders(t *testing.T, db *gorm.DB, userID int64) int64 {
	t.Helper()
	var total int64
	require.NoError(t, db.Model(&model.Order{}).Where("user_id = ?", userID).Count(&total).Error)
	return total
}

// findOrder 按平台订单号取订单
func findOrder(t *testing.T, db *gorm.DB, userID int64, platformOrderID string) *model.Order {
	t.Helper()
	var order model.Order
	require.NoError(t, db.Where("user_id = ? AND platform_order_id = ?", userID, platformOrderID).First(&order).Error)
	return &order
}

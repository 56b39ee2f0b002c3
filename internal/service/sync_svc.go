package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/repository"
	"accelerator_sync_v1/pkg/tiktok"
)

// ==================== 同步类型 ====================

type SyncType string

const (
	SyncAll             SyncType = "all"
	SyncOrders          SyncType = "orders"
	SyncAffiliateOrders SyncType = "affiliate_orders"
	SyncSettlements     SyncType = "settlements"
	SyncProducts        SyncType = "products"
)

// ParseSyncType 空字符串视为 all
func ParseSyncType(s string) (SyncType, error) {
	if s == "" {
		return SyncAll, nil
	}
	t := SyncType(s)
	switch t {
	case SyncAll, SyncOrders, SyncAffiliateOrders, SyncSettlements, SyncProducts:
		return t, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidSyncType, s)
}

func (t SyncType) includes(entity SyncType) bool {
	return t == SyncAll || t == entity
}

// ==================== 结果 ====================

type EntityStatus string

const (
	EntityOK      EntityStatus = "ok"
	EntitySkipped EntityStatus = "skipped"
	EntityFailed  EntityStatus = "failed"
)

// EntityResult 单类实体的同步结果
type EntityResult struct {
	Status  EntityStatus `json:"status"`
	Count   int          `json:"count"`
	Created int          `json:"created,omitempty"` // 新建账本商品数 (仅 products)
	Retired int          `json:"retired,omitempty"` // 下架清理数 (仅 products)
	Reason  string       `json:"reason,omitempty"`
}

// SyncResult 一次同步的汇总
type SyncResult struct {
	ConnectionID int64                      `json:"connection_id"`
	SyncType     SyncType                   `json:"sync_type"`
	WindowStart  time.Time                  `json:"window_start"`
	WindowEnd    time.Time                  `json:"window_end"`
	Entities     map[SyncType]*EntityResult `json:"results"`
	StartedAt    time.Time                  `json:"started_at"`
	FinishedAt   time.Time                  `json:"finished_at"`
}

// ==================== SyncService ====================

// SyncServiceDeps 同步服务依赖
type SyncServiceDeps struct {
	ConnRepo       repository.ConnectionRepository
	OrderRepo      repository.OrderRepository
	AffiliateRepo  repository.AffiliateOrderRepository
	SettlementRepo repository.SettlementRepository
	ProductRepo    repository.ProductRepository
	Tokens         TokenProvider
	Client         PlatformClient
	Notifier       Notifier
}

// SyncConfig 同步参数
type SyncConfig struct {
	PageSize int
	Platform string
}

// SyncService 拉取平台数据并幂等入库
type SyncService struct {
	deps     SyncServiceDeps
	pageSize int
	platform string
	log      *zap.Logger
	now      func() time.Time
}

func NewSyncService(deps SyncServiceDeps, cfg SyncConfig, log *zap.Logger) *SyncService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.Platform == "" {
		cfg.Platform = "tiktok"
	}
	if deps.Notifier == nil {
		deps.Notifier = NewLogNotifier(log)
	}
	return &SyncService{
		deps:     deps,
		pageSize: cfg.PageSize,
		platform: cfg.Platform,
		log:      log.Named("sync"),
		now:      time.Now,
	}
}

// Sync 同步一个连接在时间窗口内的数据
// 致命错误 (token、无授权店铺、订单、商品) 会把连接置为 error 并返回；
// 联盟订单与结算失败只记为 skipped
func (s *SyncService) Sync(ctx context.Context, connectionID int64, syncType SyncType, window tiktok.Window) (*SyncResult, error) {
	if _, err := ParseSyncType(string(syncType)); err != nil {
		return nil, err
	}
	if window.Start.IsZero() || !window.End.After(window.Start) {
		return nil, ErrInvalidWindow
	}

	conn, err := s.deps.ConnRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	result := &SyncResult{
		ConnectionID: connectionID,
		SyncType:     syncType,
		WindowStart:  window.Start.UTC(),
		WindowEnd:    window.End.UTC(),
		Entities:     make(map[SyncType]*EntityResult),
		StartedAt:    s.now(),
	}

	if err := s.deps.ConnRepo.MarkSyncing(ctx, connectionID); err != nil {
		return nil, fmt.Errorf("mark syncing: %w", err)
	}

	log := s.log.With(zap.Int64("connection_id", connectionID), zap.String("sync_type", string(syncType)))
	log.Info("sync started", zap.Time("start", result.WindowStart), zap.Time("end", result.WindowEnd))

	runErr := s.run(ctx, conn, syncType, window, result, log)
	result.FinishedAt = s.now()

	if runErr != nil {
		if err := s.deps.ConnRepo.MarkError(ctx, connectionID, runErr.Error()); err != nil {
			log.Error("mark error failed", zap.Error(err))
		}
		log.Error("sync failed", zap.Error(runErr))
		s.deps.Notifier.Notify(ctx, Event{
			Type:         EventSyncFailed,
			UserID:       conn.UserID,
			ConnectionID: connectionID,
			Payload:      map[string]any{"error": runErr.Error(), "sync_type": syncType},
			OccurredAt:   result.FinishedAt,
		})
		return result, runErr
	}

	if err := s.deps.ConnRepo.MarkIdle(ctx, connectionID, result.FinishedAt); err != nil {
		return result, fmt.Errorf("mark idle: %w", err)
	}
	log.Info("sync completed", zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	s.deps.Notifier.Notify(ctx, Event{
		Type:         EventSyncCompleted,
		UserID:       conn.UserID,
		ConnectionID: connectionID,
		Payload:      map[string]any{"sync_type": syncType, "results": result.Entities},
		OccurredAt:   result.FinishedAt,
	})
	return result, nil
}

func (s *SyncService) run(ctx context.Context, conn *model.Connection, syncType SyncType, window tiktok.Window, result *SyncResult, log *zap.Logger) error {
	// 1. 获取有效 token
	tok, err := s.deps.Tokens.GetValidToken(ctx, conn.ID)
	if err != nil {
		return err
	}
	conn = tok.Connection

	// 2. 首次同步需发现店铺 cipher
	if conn.NeedsShopDiscovery() {
		if err := s.discoverShop(ctx, conn, tok.AccessToken); err != nil {
			return err
		}
	}

	p := pass{svc: s, ctx: ctx, conn: conn, token: tok.AccessToken, window: window}

	// 3. 订单：主信号，失败即终止
	if syncType.includes(SyncOrders) {
		n, err := p.orders()
		if err != nil {
			result.Entities[SyncOrders] = &EntityResult{Status: EntityFailed, Count: n, Reason: err.Error()}
			return fmt.Errorf("同步订单失败: %w", err)
		}
		result.Entities[SyncOrders] = &EntityResult{Status: EntityOK, Count: n}
	}

	// 4. 联盟订单 / 结算：权限常未开通，失败跳过
	if syncType.includes(SyncAffiliateOrders) {
		result.Entities[SyncAffiliateOrders] = s.optional(log, SyncAffiliateOrders, p.affiliateOrders)
	}
	if syncType.includes(SyncSettlements) {
		result.Entities[SyncSettlements] = s.optional(log, SyncSettlements, p.settlements)
	}

	// 5. 商品
	if syncType.includes(SyncProducts) {
		res, err := p.products()
		if err != nil {
			result.Entities[SyncProducts] = res
			return fmt.Errorf("同步商品失败: %w", err)
		}
		result.Entities[SyncProducts] = res
	}
	return nil
}

func (s *SyncService) optional(log *zap.Logger, entity SyncType, fn func() (int, error)) *EntityResult {
	n, err := fn()
	if err != nil {
		log.Warn("entity skipped",
			zap.String("entity", string(entity)),
			zap.Bool("scope_not_granted", tiktok.IsScopeNotGranted(err)),
			zap.Error(err))
		return &EntityResult{Status: EntitySkipped, Count: n, Reason: err.Error()}
	}
	return &EntityResult{Status: EntityOK, Count: n}
}

func (s *SyncService) discoverShop(ctx context.Context, conn *model.Connection, accessToken string) error {
	shops, err := s.deps.Client.ListAuthorizedShops(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("查询已授权店铺失败: %w", err)
	}
	if len(shops) == 0 {
		return ErrNoAuthorizedShops
	}

	shop := shops[0]
	update := repository.ShopUpdate{Cipher: shop.Cipher, ShopID: shop.ID, Name: shop.Name, Region: shop.Region}
	if err := s.deps.ConnRepo.UpdateShop(ctx, conn.ID, update); err != nil {
		return fmt.Errorf("保存店铺信息失败: %w", err)
	}
	conn.ShopCipher = shop.Cipher
	conn.ShopID = shop.ID
	conn.ShopName = shop.Name
	conn.ShopRegion = shop.Region

	s.log.Info("shop discovered",
		zap.Int64("connection_id", conn.ID),
		zap.String("shop_id", shop.ID),
		zap.String("shop_name", shop.Name))
	return nil
}

// ==================== 各实体拉取 ====================

// pass 一次同步内共享的上下文
type pass struct {
	svc    *SyncService
	ctx    context.Context
	conn   *model.Connection
	token  string
	window tiktok.Window
}

func (p *pass) orders() (int, error) {
	repo := p.svc.deps.OrderRepo
	return tiktok.Paginate(p.ctx,
		func(ctx context.Context, cursor string) (*tiktok.Page[tiktok.Order], error) {
			return p.svc.deps.Client.ListOrders(ctx, p.token, p.conn.ShopCipher, p.window, p.svc.pageSize, cursor)
		},
		func(o tiktok.Order) error {
			return repo.Upsert(p.ctx, toOrderModel(p.conn, &o))
		})
}

func (p *pass) affiliateOrders() (int, error) {
	repo := p.svc.deps.AffiliateRepo
	return tiktok.Paginate(p.ctx,
		func(ctx context.Context, cursor string) (*tiktok.Page[tiktok.AffiliateOrder], error) {
			return p.svc.deps.Client.ListAffiliateOrders(ctx, p.token, p.conn.ShopCipher, p.window, p.svc.pageSize, cursor)
		},
		func(o tiktok.AffiliateOrder) error {
			return repo.Upsert(p.ctx, toAffiliateModel(p.conn, &o))
		})
}

func (p *pass) settlements() (int, error) {
	repo := p.svc.deps.SettlementRepo
	return tiktok.Paginate(p.ctx,
		func(ctx context.Context, cursor string) (*tiktok.Page[tiktok.Settlement], error) {
			return p.svc.deps.Client.ListSettlements(ctx, p.token, p.conn.ShopCipher, p.window, p.svc.pageSize, cursor)
		},
		func(st tiktok.Settlement) error {
			return repo.Upsert(p.ctx, toSettlementModel(p.conn, &st))
		})
}

// products 拉取完整商品列表 (不受时间窗口限制)，全部成功后才清理已消失的商品
func (p *pass) products() (*EntityResult, error) {
	repo := p.svc.deps.ProductRepo
	res := &EntityResult{Status: EntityOK}
	live := make(map[string]struct{})
	now := p.svc.now()

	count, err := tiktok.Paginate(p.ctx,
		func(ctx context.Context, cursor string) (*tiktok.Page[tiktok.Product], error) {
			return p.svc.deps.Client.ListProducts(ctx, p.token, p.conn.ShopCipher, tiktok.Window{}, p.svc.pageSize, cursor)
		},
		func(prod tiktok.Product) error {
			live[prod.ID] = struct{}{}
			stored, err := repo.UpsertMapping(p.ctx, toMappingModel(p.conn, &prod, p.svc.platform, now))
			if err != nil {
				return err
			}
			if stored.LedgerProductID != nil {
				return nil
			}
			lp := &model.LedgerProduct{
				UserID:   p.conn.UserID,
				Name:     prod.Title,
				SKU:      firstSellerSku(&prod),
				COGS:     decimal.Zero,
				Platform: p.svc.platform,
			}
			if err := repo.CreateAndLink(p.ctx, stored.ID, lp); err != nil {
				return err
			}
			res.Created++
			return nil
		})
	res.Count = count
	if err != nil {
		// 列表不完整，跳过清理
		res.Status = EntityFailed
		res.Reason = err.Error()
		return res, err
	}

	retired, err := p.retireStale(live)
	res.Retired = retired
	if err != nil {
		res.Status = EntityFailed
		res.Reason = err.Error()
		return res, err
	}
	return res, nil
}

func (p *pass) retireStale(live map[string]struct{}) (int, error) {
	repo := p.svc.deps.ProductRepo
	mappings, err := repo.ListMappingsByConnection(p.ctx, p.conn.ID)
	if err != nil {
		return 0, err
	}

	retired := 0
	for i := range mappings {
		m := &mappings[i]
		if _, ok := live[m.PlatformProductID]; ok {
			continue
		}
		if err := repo.Retire(p.ctx, m); err != nil {
			return retired, fmt.Errorf("retire product %s: %w", m.PlatformProductID, err)
		}
		retired++
		p.svc.log.Info("stale product retired",
			zap.Int64("connection_id", p.conn.ID),
			zap.String("product_id", m.PlatformProductID))
	}
	return retired, nil
}

// ==================== DTO -> Model ====================

func toOrderModel(conn *model.Connection, o *tiktok.Order) *model.Order {
	items := make([]model.OrderItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		qty := int(li.Quantity)
		if qty <= 0 {
			qty = 1
		}
		items = append(items, model.OrderItem{
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			SkuID:       li.SkuID,
			SellerSku:   li.SellerSku,
			Quantity:    qty,
			Price:       li.SalePrice.Decimal(),
		})
	}

	order := &model.Order{
		UserID:           conn.UserID,
		ConnectionID:     conn.ID,
		PlatformOrderID:  o.ID,
		Status:           o.Status,
		Currency:         o.Payment.Currency,
		GrossAmount:      o.Payment.TotalAmount.Decimal(),
		SubtotalAmount:   o.Payment.SubTotal.Decimal(),
		ShippingAmount:   o.Payment.ShippingFee.Decimal(),
		SellerDiscount:   o.Payment.SellerDiscount.Decimal(),
		PlatformDiscount: o.Payment.PlatformDiscount.Decimal(),
		RefundAmount:     o.Payment.RefundAmount.Decimal(),
		Items:            items,
		RawData:          datatypes.JSON(o.Raw),
		OrderCreatedAt:   o.CreateTime.Time(),
	}
	if paid := o.PaidTime.Time(); !paid.IsZero() {
		order.PaidAt = &paid
	}
	return order
}

func toAffiliateModel(conn *model.Connection, o *tiktok.AffiliateOrder) *model.AffiliateOrder {
	return &model.AffiliateOrder{
		UserID:            conn.UserID,
		ConnectionID:      conn.ID,
		PlatformOrderID:   o.OrderID,
		CollaborationType: o.CollaborationType,
		ProductID:         o.ProductID,
		SkuID:             o.SkuID,
		CreatorUsername:   o.CreatorUsername,
		CreatorOpenID:     o.CreatorOpenID,
		CommissionRate:    o.CommissionRate.Decimal(),
		CommissionAmount:  o.CommissionAmount(),
		OrderAmount:       o.OrderAmount.Decimal(),
		Currency:          o.Currency,
		OrderCreatedAt:    o.CreateTime.Time(),
	}
}

// toSettlementModel 平台以负数表示扣款，费用与佣金统一存绝对值
func toSettlementModel(conn *model.Connection, st *tiktok.Settlement) *model.Settlement {
	return &model.Settlement{
		UserID:               conn.UserID,
		ConnectionID:         conn.ID,
		PlatformSettlementID: st.ID,
		SettlementAmount:     st.SettlementAmount.Decimal(),
		RevenueAmount:        st.RevenueAmount.Decimal(),
		PlatformFee:          st.PlatformFeeAmount.Decimal().Abs(),
		AffiliateCommission:  st.AffiliateCommission.Decimal().Abs(),
		ShippingSubsidy:      st.ShippingSubsidy.Decimal(),
		RefundAmount:         st.RefundAmount.Decimal().Abs(),
		AdjustmentAmount:     st.AdjustmentAmount.Decimal(),
		Currency:             st.Currency,
		SettledAt:            st.SettlementTime.Time(),
	}
}

func toMappingModel(conn *model.Connection, p *tiktok.Product, platform string, seenAt time.Time) *model.ProductMapping {
	m := &model.ProductMapping{
		UserID:            conn.UserID,
		ConnectionID:      conn.ID,
		PlatformProductID: p.ID,
		Platform:          platform,
		Title:             p.Title,
		Status:            p.Status,
		LastSeenAt:        seenAt,
	}
	for _, sku := range p.Skus {
		if sku.SellerSku != "" {
			m.SellerSkus = append(m.SellerSkus, sku.SellerSku)
		}
	}
	if len(p.Skus) > 0 {
		m.Price = p.Skus[0].Price.SalePrice.Decimal()
		m.Currency = p.Skus[0].Price.Currency
	}
	return m
}

func firstSellerSku(p *tiktok.Product) string {
	for _, sku := range p.Skus {
		if sku.SellerSku != "" {
			return sku.SellerSku
		}
	}
	return ""
}

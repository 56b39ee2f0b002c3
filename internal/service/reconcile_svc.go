package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/repository"
	"accelerator_sync_v1/pkg/tiktok"
)

// 匹配度：只有两档
const (
	MatchEstimated = 50
	MatchSettled   = 100
)

var hundred = decimal.NewFromInt(100)

// ReconcileResult 对账结果
type ReconcileResult struct {
	DaysUpdated int      `json:"days_updated"`
	Days        []string `json:"days"`
}

// ReconcileServiceDeps 对账服务依赖
type ReconcileServiceDeps struct {
	ConnRepo       repository.ConnectionRepository
	OrderRepo      repository.OrderRepository
	AffiliateRepo  repository.AffiliateOrderRepository
	SettlementRepo repository.SettlementRepository
	ProductRepo    repository.ProductRepository
	LedgerRepo     repository.LedgerRepository
	Notifier       Notifier
}

// ReconcileService 把原始交易数据汇总为每日账本
type ReconcileService struct {
	deps     ReconcileServiceDeps
	platform string
	log      *zap.Logger
	now      func() time.Time
}

func NewReconcileService(deps ReconcileServiceDeps, platform string, log *zap.Logger) *ReconcileService {
	if platform == "" {
		platform = "tiktok"
	}
	if deps.Notifier == nil {
		deps.Notifier = NewLogNotifier(log)
	}
	return &ReconcileService{
		deps:     deps,
		platform: platform,
		log:      log.Named("reconcile"),
		now:      time.Now,
	}
}

// dayBucket 单日汇总
type dayBucket struct {
	gross      decimal.Decimal
	refunds    decimal.Decimal
	orders     int
	commission decimal.Decimal
	units      map[int64]int // 账本商品ID -> 销量
}

func newDayBucket() *dayBucket {
	return &dayBucket{units: make(map[int64]int)}
}

// daySettlement 单日结算汇总
type daySettlement struct {
	revenue    decimal.Decimal
	fee        decimal.Decimal
	commission decimal.Decimal
}

// Reconcile 汇总窗口内的订单与联盟订单 (按 UTC 自然日)，写入账本
// 账本按 (user, date, platform) 汇总，包含该用户在本平台所有连接的数据
func (s *ReconcileService) Reconcile(ctx context.Context, connectionID int64, window tiktok.Window, feePercent float64) (*ReconcileResult, error) {
	if window.Start.IsZero() || !window.End.After(window.Start) {
		return nil, ErrInvalidWindow
	}
	conn, err := s.deps.ConnRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	userID := conn.UserID

	// 1. 订单 / 联盟订单
	orders, err := s.deps.OrderRepo.ListByUserWindow(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	affiliates, err := s.deps.AffiliateRepo.ListByUserWindow(ctx, userID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("load affiliate orders: %w", err)
	}
	linked, err := s.deps.ProductRepo.LinkedProductIndex(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load product links: %w", err)
	}

	// 2. 按天分桶
	buckets := make(map[string]*dayBucket)
	bucket := func(day string) *dayBucket {
		b, ok := buckets[day]
		if !ok {
			b = newDayBucket()
			buckets[day] = b
		}
		return b
	}

	for i := range orders {
		o := &orders[i]
		b := bucket(model.DayOf(o.OrderCreatedAt))
		b.gross = b.gross.Add(o.GrossAmount)
		b.refunds = b.refunds.Add(o.RefundAmount)
		b.orders++
		for _, item := range o.Items {
			// 未关联账本商品的只计入金额，不计销量
			if lpID, ok := linked[item.ProductID]; ok {
				b.units[lpID] += item.Quantity
			}
		}
	}
	for i := range affiliates {
		a := &affiliates[i]
		b := bucket(model.DayOf(a.OrderCreatedAt))
		b.commission = b.commission.Add(a.CommissionAmount)
	}

	// 3. 结算不受窗口限制
	settled, err := s.loadSettlements(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 4. 逐日写入
	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	pct := decimal.NewFromFloat(feePercent)
	syncedAt := s.now().UTC()

	for _, day := range days {
		if err := s.writeDay(ctx, conn, day, buckets[day], settled[day], pct, syncedAt); err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", day, err)
		}
	}

	result := &ReconcileResult{DaysUpdated: len(days), Days: days}
	s.log.Info("ledger reconciled",
		zap.Int64("connection_id", connectionID),
		zap.Int64("user_id", userID),
		zap.Int("days_updated", result.DaysUpdated))
	s.deps.Notifier.Notify(ctx, Event{
		Type:         EventLedgerReconciled,
		UserID:       userID,
		ConnectionID: connectionID,
		Payload:      map[string]any{"days_updated": result.DaysUpdated},
		OccurredAt:   syncedAt,
	})
	return result, nil
}

func (s *ReconcileService) loadSettlements(ctx context.Context, userID int64) (map[string]*daySettlement, error) {
	list, err := s.deps.SettlementRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}
	byDay := make(map[string]*daySettlement)
	for i := range list {
		st := &list[i]
		day := model.DayOf(st.SettledAt)
		ds, ok := byDay[day]
		if !ok {
			ds = &daySettlement{}
			byDay[day] = ds
		}
		ds.revenue = ds.revenue.Add(st.RevenueAmount)
		ds.fee = ds.fee.Add(st.PlatformFee)
		ds.commission = ds.commission.Add(st.AffiliateCommission)
	}
	return byDay, nil
}

func (s *ReconcileService) writeDay(ctx context.Context, conn *model.Connection, day string, b *dayBucket, st *daySettlement,
	pct decimal.Decimal, syncedAt time.Time) error {

	estimatedFee := b.gross.Mul(pct).Div(hundred).Round(2)

	fee, commission, match := estimatedFee, b.commission, MatchEstimated
	if st != nil {
		fee, commission, match = st.fee, st.commission, MatchSettled
	}

	entry, err := s.deps.LedgerRepo.UpsertSyncFields(ctx, &model.DailyLedgerEntry{
		UserID:              conn.UserID,
		Date:                day,
		Platform:            s.platform,
		ConnectionID:        conn.ID,
		GrossRevenue:        b.gross,
		Refunds:             b.refunds,
		OrderCount:          b.orders,
		PlatformFee:         fee,
		AffiliateCommission: commission,
		MatchPercent:        match,
		SyncedAt:            &syncedAt,
	})
	if err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}

	for lpID, units := range b.units {
		err := s.deps.LedgerRepo.UpsertUnits(ctx, &model.DailyProductUnits{
			UserID:          conn.UserID,
			LedgerProductID: lpID,
			Date:            day,
			Platform:        s.platform,
			LedgerEntryID:   entry.ID,
			Units:           units,
		})
		if err != nil {
			return fmt.Errorf("upsert units: %w", err)
		}
	}

	log := &model.SyncLog{
		UserID:              conn.UserID,
		Date:                day,
		Platform:            s.platform,
		ConnectionID:        conn.ID,
		EstimatedRevenue:    b.gross,
		EstimatedFee:        estimatedFee,
		EstimatedCommission: b.commission,
		MatchPercent:        match,
		SyncedAt:            syncedAt,
	}
	if st != nil {
		log.SettledRevenue = decimal.NewNullDecimal(st.revenue)
		log.SettledFee = decimal.NewNullDecimal(st.fee)
		log.SettledCommission = decimal.NewNullDecimal(st.commission)
	}
	if err := s.deps.LedgerRepo.UpsertSyncLog(ctx, log); err != nil {
		return fmt.Errorf("upsert sync log: %w", err)
	}
	return nil
}

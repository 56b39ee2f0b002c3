package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/pkg/tiktok"
)

// seedSyncedData 两天订单，第二天有结算单；第三天只有联盟订单
func seedSyncedData(t *testing.T, env *testEnv, conn *model.Connection) (day1, day2, day3 time.Time) {
	t.Helper()
	w := testWindow()
	day1 = w.Start
	day2 = w.Start.AddDate(0, 0, 1)
	day3 = w.Start.AddDate(0, 0, 2)

	env.platform.orders = []tiktok.Order{
		{ID: "o1", CreateTime: unix(day1.Add(time.Hour)), Payment: tiktok.OrderPayment{TotalAmount: "100.00"},
			LineItems: []tiktok.OrderLineItem{{ProductID: "p1", Quantity: 2}}},
		{ID: "o2", CreateTime: unix(day1.Add(5 * time.Hour)), Payment: tiktok.OrderPayment{TotalAmount: "50.00", RefundAmount: "10.00"},
			LineItems: []tiktok.OrderLineItem{{ProductID: "p1", Quantity: 1}, {ProductID: "unknown", Quantity: 4}}},
		{ID: "o3", CreateTime: unix(day2.Add(time.Hour)), Payment: tiktok.OrderPayment{TotalAmount: "80.00"},
			LineItems: []tiktok.OrderLineItem{{ProductID: "p2", Quantity: 3}}},
	}
	env.platform.affiliates = []tiktok.AffiliateOrder{
		{OrderID: "o1", CollaborationType: "OPEN", EstimatedCommission: "7.50", CreateTime: unix(day1.Add(time.Hour))},
		{OrderID: "o9", CollaborationType: "TARGETED", ActualCommission: "3.00", CreateTime: unix(day3.Add(time.Hour))},
	}
	env.platform.settlements = []tiktok.Settlement{
		{ID: "s1", RevenueAmount: "80.00", PlatformFeeAmount: "-4.40", AffiliateCommission: "-2.00", SettlementTime: unix(day2.Add(10 * time.Hour))},
	}
	env.platform.products = sampleProducts("p1", "p2")

	_, err := env.sync.Sync(context.Background(), conn.ID, SyncAll, w)
	require.NoError(t, err)
	return day1, day2, day3
}

func TestReconcileService_ConfidenceTiers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := createConnection(t, env.db, 1, "cipher")
	day1, day2, _ := seedSyncedData(t, env, conn)

	res, err := env.reconcile.Reconcile(ctx, conn.ID, testWindow(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DaysUpdated)

	// 无结算：按费率估算
	e1, err := env.ledgerRepo.GetEntry(ctx, 1, model.DayOf(day1), "tiktok")
	require.NoError(t, err)
	assert.True(t, e1.GrossRevenue.Equal(dec("150")), e1.GrossRevenue.String())
	assert.True(t, e1.Refunds.Equal(dec("10")))
	assert.Equal(t, 2, e1.OrderCount)
	assert.True(t, e1.PlatformFee.Equal(dec("7.5")), e1.PlatformFee.String())
	assert.True(t, e1.AffiliateCommission.Equal(dec("7.5")))
	assert.Equal(t, MatchEstimated, e1.MatchPercent)

	// 有结算：采用实际费用
	e2, err := env.ledgerRepo.GetEntry(ctx, 1, model.DayOf(day2), "tiktok")
	require.NoError(t, err)
	assert.True(t, e2.PlatformFee.Equal(dec("4.4")), e2.PlatformFee.String())
	assert.True(t, e2.AffiliateCommission.Equal(dec("2")))
	assert.Equal(t, MatchSettled, e2.MatchPercent)

	log2, err := env.ledgerRepo.GetSyncLog(ctx, 1, model.DayOf(day2), "tiktok")
	require.NoError(t, err)
	assert.True(t, log2.EstimatedFee.Equal(dec("4")))
	require.True(t, log2.SettledFee.Valid)
	assert.True(t, log2.SettledFee.Decimal.Equal(dec("4.4")))

	log1, err := env.ledgerRepo.GetSyncLog(ctx, 1, model.DayOf(day1), "tiktok")
	require.NoError(t, err)
	assert.False(t, log1.SettledFee.Valid)
}

func TestReconcileService_UnitsOnlyForLinkedProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := createConnection(t, env.db, 1, "cipher")
	day1, _, _ := seedSyncedData(t, env, conn)

	_, err := env.reconcile.Reconcile(ctx, conn.ID, testWindow(), 5)
	require.NoError(t, err)

	units, err := env.ledgerRepo.ListUnitsByDate(ctx, 1, model.DayOf(day1), "tiktok")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 3, units[0].Units)
}

func TestReconcileService_AffiliateOnlyDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := createConnection(t, env.db, 1, "cipher")
	_, _, day3 := seedSyncedData(t, env, conn)

	_, err := env.reconcile.Reconcile(ctx, conn.ID, testWindow(), 5)
	require.NoError(t, err)

	e3, err := env.ledgerRepo.GetEntry(ctx, 1, model.DayOf(day3), "tiktok")
	require.NoError(t, err)
	assert.Equal(t, 0, e3.OrderCount)
	assert.True(t, e3.GrossRevenue.IsZero())
	assert.True(t, e3.AffiliateCommission.Equal(dec("3")))
}

func TestReconcileService_PreservesManualFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := createConnection(t, env.db, 1, "cipher")
	day1, _, _ := seedSyncedData(t, env, conn)

	_, err := env.reconcile.Reconcile(ctx, conn.ID, testWindow(), 5)
	require.NoError(t, err)

	// 用户手填
	err = env.db.Model(&model.DailyLedgerEntry{}).
		Where("user_id = ? AND date = ?", 1, model.DayOf(day1)).
		Updates(map[string]interface{}{"postage_cost": dec("12.34"), "ad_spend": dec("20"), "notes": "双十一备货"}).Error
	require.NoError(t, err)

	// 再次同步出新订单后重算
	env.platform.orders = append(env.platform.orders, tiktok.Order{
		ID: "o4", CreateTime: unix(day1.Add(8 * time.Hour)), Payment: tiktok.OrderPayment{TotalAmount: "25.00"},
	})
	_, err = env.sync.Sync(ctx, conn.ID, SyncOrders, testWindow())
	require.NoError(t, err)
	_, err = env.reconcile.Reconcile(ctx, conn.ID, testWindow(), 5)
	require.NoError(t, err)

	e1, err := env.ledgerRepo.GetEntry(ctx, 1, model.DayOf(day1), "tiktok")
	require.NoError(t, err)
	assert.Equal(t, 3, e1.OrderCount)
	assert.True(t, e1.GrossRevenue.Equal(dec("175")))
	assert.True(t, e1.PostageCost.Equal(dec("12.34")))
	assert.True(t, e1.AdSpend.Equal(dec("20")))
	assert.Equal(t, "双十一备货", e1.Notes)
}

func TestReconcileService_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conn := createConnection(t, env.db, 1, "cipher")
	day1, _, _ := seedSyncedData(t, env, conn)

	_, err := env.reconcile.Reconcile(ctx, conn.ID, testWindow(), 5)
	require.NoError(t, err)
	first, err := env.ledgerRepo.GetEntry(ctx, 1, model.DayOf(day1), "tiktok")
	require.NoError(t, err)

	_, err = env.reconcile.Reconcile(ctx, conn.ID, testWindow(), 5)
	require.NoError(t, err)
	second, err := env.ledgerRepo.GetEntry(ctx, 1, model.DayOf(day1), "tiktok")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.GrossRevenue.Equal(second.GrossRevenue))
	assert.Equal(t, first.OrderCount, second.OrderCount)

	var entries int64
	env.db.Model(&model.DailyLedgerEntry{}).Where("user_id = ?", 1).Count(&entries)
	assert.Equal(t, int64(3), entries)

	units, err := env.ledgerRepo.ListUnitsByDate(ctx, 1, model.DayOf(day1), "tiktok")
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestReconcileService_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.reconcile.Reconcile(ctx, 1, tiktok.Window{}, 5)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = env.reconcile.Reconcile(ctx, 404, testWindow(), 5)
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

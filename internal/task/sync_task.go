package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/service"
	"accelerator_sync_v1/pkg/tiktok"
)

// ==================== 依赖接口 ====================

// ConnectionSource 定时任务需要的连接查询
type ConnectionSource interface {
	ListBySyncStatus(ctx context.Context, status string) ([]model.Connection, error)
	ListStaleSyncing(ctx context.Context, before time.Time) ([]model.Connection, error)
	ListExpiring(ctx context.Context, before time.Time) ([]model.Connection, error)
}

// Syncer 拉取平台数据
type Syncer interface {
	Sync(ctx context.Context, connectionID int64, syncType service.SyncType, window tiktok.Window) (*service.SyncResult, error)
}

// Reconciler 生成每日账本
type Reconciler interface {
	Reconcile(ctx context.Context, connectionID int64, window tiktok.Window, feePercent float64) (*service.ReconcileResult, error)
}

// roundTimeout 单轮同步超时，也是判定 syncing 遗留的默认阈值
const roundTimeout = 30 * time.Minute

// ==================== SyncTask 定时同步 + 对账 ====================

// SyncTask 按 cron 同步所有空闲/失败的连接，成功后立即对账
type SyncTask struct {
	conns      ConnectionSource
	syncer     Syncer
	reconciler Reconciler
	cron       *cron.Cron
	spec       string
	log        *zap.Logger

	windowDays int
	feePercent float64

	// 并发控制
	concurrencyLimit int
	sleepTime        time.Duration

	// syncing 超过该时长未更新视为中断
	staleAfter time.Duration

	now func() time.Time
}

// NewSyncTask 创建同步任务
func NewSyncTask(conns ConnectionSource, syncer Syncer, reconciler Reconciler, log *zap.Logger) *SyncTask {
	return &SyncTask{
		conns:            conns,
		syncer:           syncer,
		reconciler:       reconciler,
		cron:             cron.New(cron.WithSeconds()),
		spec:             "0 0 */2 * * *",
		log:              log.Named("sync_task"),
		windowDays:       7,
		feePercent:       6,
		concurrencyLimit: 5,
		sleepTime:        200 * time.Millisecond,
		staleAfter:       roundTimeout,
		now:              time.Now,
	}
}

// SetSchedule cron 表达式 (带秒)
func (t *SyncTask) SetSchedule(spec string) {
	if spec != "" {
		t.spec = spec
	}
}

// SetWindow 回溯天数与估算费率
func (t *SyncTask) SetWindow(days int, feePercent float64) {
	if days > 0 {
		t.windowDays = days
	}
	t.feePercent = feePercent
}

// SetConcurrency 设置并发参数
func (t *SyncTask) SetConcurrency(limit int, sleep time.Duration) {
	if limit > 0 {
		t.concurrencyLimit = limit
	}
	t.sleepTime = sleep
}

// SetStaleAfter syncing 状态的超时阈值
func (t *SyncTask) SetStaleAfter(d time.Duration) {
	if d > 0 {
		t.staleAfter = d
	}
}

// Start 启动定时任务
func (t *SyncTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), roundTimeout)
		defer cancel()
		t.syncAll(ctx)
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	t.log.Info("started", zap.String("spec", t.spec), zap.Int("window_days", t.windowDays))
	return nil
}

// Stop 停止任务，等待运行中的任务结束
func (t *SyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.log.Info("stopped")
}

// Window 截至当前的回溯窗口
func (t *SyncTask) Window() tiktok.Window {
	end := t.now().UTC()
	return tiktok.Window{Start: end.AddDate(0, 0, -t.windowDays), End: end}
}

// syncAll 同步所有连接；单个连接失败不影响其他连接
func (t *SyncTask) syncAll(ctx context.Context) {
	var targets []model.Connection
	for _, status := range []string{model.SyncStatusIdle, model.SyncStatusError} {
		list, err := t.conns.ListBySyncStatus(ctx, status)
		if err != nil {
			t.log.Error("list connections failed", zap.String("status", status), zap.Error(err))
			return
		}
		targets = append(targets, list...)
	}

	stale, err := t.conns.ListStaleSyncing(ctx, t.now().Add(-t.staleAfter))
	if err != nil {
		t.log.Error("list stale syncing connections failed", zap.Error(err))
	}
	for _, c := range stale {
		t.log.Warn("recovering interrupted sync", zap.Int64("connection_id", c.ID), zap.Time("updated_at", c.UpdatedAt))
	}
	targets = append(targets, stale...)

	if len(targets) == 0 {
		t.log.Debug("no connections to sync")
		return
	}

	window := t.Window()
	sem := make(chan struct{}, t.concurrencyLimit)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		okCount  int
		errCount int
	)

	t.log.Info("sync round started", zap.Int("connections", len(targets)), zap.Int("concurrency", t.concurrencyLimit))

	for i := range targets {
		conn := targets[i]
		select {
		case <-ctx.Done():
			t.log.Warn("sync round timeout")
			wg.Wait()
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(connectionID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			err := t.runOne(ctx, connectionID, service.SyncAll, window)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errCount++
				return
			}
			okCount++
		}(conn.ID)
	}

	wg.Wait()
	t.log.Info("sync round finished", zap.Int("ok", okCount), zap.Int("failed", errCount))
}

// runOne 同步并对账单个连接
func (t *SyncTask) runOne(ctx context.Context, connectionID int64, syncType service.SyncType, window tiktok.Window) error {
	if _, err := t.syncer.Sync(ctx, connectionID, syncType, window); err != nil {
		t.log.Warn("connection sync failed", zap.Int64("connection_id", connectionID), zap.Error(err))
		return err
	}
	if _, err := t.reconciler.Reconcile(ctx, connectionID, window, t.feePercent); err != nil {
		t.log.Error("connection reconcile failed", zap.Int64("connection_id", connectionID), zap.Error(err))
		return err
	}
	return nil
}

// ==================== 手动触发 ====================

// SyncAllNow 立即执行一轮 (异步)
func (t *SyncTask) SyncAllNow() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), roundTimeout)
		defer cancel()
		t.syncAll(ctx)
	}()
}

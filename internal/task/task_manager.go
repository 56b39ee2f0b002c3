package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"accelerator_sync_v1/internal/service"
	"accelerator_sync_v1/pkg/tiktok"
)

// ==================== TaskManager 同步任务管理器 ====================

// TaskManager 统一管理定时任务与手动触发
type TaskManager struct {
	syncTask   *SyncTask
	tokenTask  *TokenTask
	syncer     Syncer
	reconciler Reconciler
	feePercent float64
	windowDays int
	log        *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Connections ConnectionSource
	Syncer      Syncer
	Reconciler  Reconciler
	Tokens      service.TokenProvider
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	Enabled bool

	SyncCron        string
	SyncWindowDays  int
	SyncConcurrency int
	FeePercent      float64
	// StaleSyncAfter syncing 状态超过该时长视为中断，下一轮重新同步
	StaleSyncAfter time.Duration

	TokenCron      string
	TokenLookAhead time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		Enabled:         true,
		SyncCron:        "0 0 */2 * * *",
		SyncWindowDays:  7,
		SyncConcurrency: 5,
		FeePercent:      6,
		StaleSyncAfter:  roundTimeout,
		TokenCron:       "0 0/40 * * * *",
		TokenLookAhead:  time.Hour,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig, log *zap.Logger) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.SyncWindowDays <= 0 {
		cfg.SyncWindowDays = 7
	}

	tm := &TaskManager{
		syncer:     deps.Syncer,
		reconciler: deps.Reconciler,
		feePercent: cfg.FeePercent,
		windowDays: cfg.SyncWindowDays,
		log:        log.Named("task_manager"),
	}
	if !cfg.Enabled {
		return tm
	}

	tm.syncTask = NewSyncTask(deps.Connections, deps.Syncer, deps.Reconciler, log)
	tm.syncTask.SetSchedule(cfg.SyncCron)
	tm.syncTask.SetWindow(cfg.SyncWindowDays, cfg.FeePercent)
	tm.syncTask.SetConcurrency(cfg.SyncConcurrency, 200*time.Millisecond)
	tm.syncTask.SetStaleAfter(cfg.StaleSyncAfter)

	if deps.Tokens != nil {
		tm.tokenTask = NewTokenTask(deps.Connections, deps.Tokens, log)
		tm.tokenTask.SetSchedule(cfg.TokenCron, cfg.TokenLookAhead)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.tokenTask != nil {
		if err := tm.tokenTask.Start(); err != nil {
			return err
		}
	}
	if tm.syncTask != nil {
		if err := tm.syncTask.Start(); err != nil {
			return err
		}
	}
	tm.log.Info("scheduled tasks started", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.syncTask != nil {
		tm.syncTask.Stop()
	}
	if tm.tokenTask != nil {
		tm.tokenTask.Stop()
	}
	tm.log.Info("scheduled tasks stopped")
}

// ==================== 手动触发接口 ====================

// DefaultWindow 未指定窗口时使用的回溯窗口
func (tm *TaskManager) DefaultWindow() tiktok.Window {
	end := time.Now().UTC()
	return tiktok.Window{Start: end.AddDate(0, 0, -tm.windowDays), End: end}
}

// DefaultFeePercent 未指定费率时使用的估算费率
func (tm *TaskManager) DefaultFeePercent() float64 {
	return tm.feePercent
}

// TriggerSync 同步单个连接 (同步执行)
func (tm *TaskManager) TriggerSync(ctx context.Context, connectionID int64, syncType service.SyncType, window tiktok.Window) (*service.SyncResult, error) {
	return tm.syncer.Sync(ctx, connectionID, syncType, window)
}

// TriggerReconcile 对账单个连接 (同步执行)
func (tm *TaskManager) TriggerReconcile(ctx context.Context, connectionID int64, window tiktok.Window, feePercent float64) (*service.ReconcileResult, error) {
	return tm.reconciler.Reconcile(ctx, connectionID, window, feePercent)
}

// TriggerAllSync 触发一轮全量同步
func (tm *TaskManager) TriggerAllSync() error {
	if tm.syncTask == nil {
		return ErrTaskDisabled
	}
	tm.syncTask.SyncAllNow()
	return nil
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"sync":  tm.syncTask != nil,
		"token": tm.tokenTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)

package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"accelerator_sync_v1/internal/service"
)

// TokenTask 提前刷新即将过期的 access token
type TokenTask struct {
	conns  ConnectionSource
	tokens service.TokenProvider
	cron   *cron.Cron
	spec   string
	log    *zap.Logger

	// lookAhead 内将过期的连接会被刷新
	lookAhead time.Duration

	// 控制并发，避免同时打满平台的授权接口
	concurrencyLimit int
	sleepTime        time.Duration

	now func() time.Time
}

func NewTokenTask(conns ConnectionSource, tokens service.TokenProvider, log *zap.Logger) *TokenTask {
	return &TokenTask{
		conns:            conns,
		tokens:           tokens,
		cron:             cron.New(cron.WithSeconds()),
		spec:             "0 0/40 * * * *",
		log:              log.Named("token_task"),
		lookAhead:        time.Hour,
		concurrencyLimit: 10,
		sleepTime:        50 * time.Millisecond,
		now:              time.Now,
	}
}

// SetSchedule cron 表达式与提前量
func (t *TokenTask) SetSchedule(spec string, lookAhead time.Duration) {
	if spec != "" {
		t.spec = spec
	}
	if lookAhead > 0 {
		t.lookAhead = lookAhead
	}
}

// Start 启动时先跑一次，再按 cron 执行
func (t *TokenTask) Start() error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.refreshJob(ctx)
	}()

	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.refreshJob(ctx)
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	t.log.Info("started", zap.String("spec", t.spec), zap.Duration("look_ahead", t.lookAhead))
	return nil
}

func (t *TokenTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.log.Info("stopped")
}

// refreshJob 返回成功刷新的数量
func (t *TokenTask) refreshJob(ctx context.Context) int {
	conns, err := t.conns.ListExpiring(ctx, t.now().Add(t.lookAhead))
	if err != nil {
		t.log.Error("list expiring connections failed", zap.Error(err))
		return 0
	}
	if len(conns) == 0 {
		return 0
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)

	t.log.Info("token refresh round started", zap.Int("connections", len(conns)))

	for i := range conns {
		select {
		case <-ctx.Done():
			t.log.Warn("token refresh round timeout")
			wg.Wait()
			return refreshed
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(connectionID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			// GetValidToken 内部加锁并处理回退
			if _, err := t.tokens.GetValidToken(ctx, connectionID); err != nil {
				t.log.Warn("token refresh failed", zap.Int64("connection_id", connectionID), zap.Error(err))
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}(conns[i].ID)
	}

	wg.Wait()
	t.log.Info("token refresh round finished", zap.Int("ok", refreshed), zap.Int("total", len(conns)))
	return refreshed
}

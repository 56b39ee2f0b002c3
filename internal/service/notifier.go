package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 事件类型
const (
	EventSyncCompleted    = "sync.completed"
	EventSyncFailed       = "sync.failed"
	EventLedgerReconciled = "ledger.reconciled"
)

// Event 同步/对账事件，供通知中心消费
type Event struct {
	Type         string         `json:"type"`
	UserID       int64          `json:"user_id"`
	ConnectionID int64          `json:"connection_id"`
	Payload      map[string]any `json:"payload,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Notifier 事件发布失败不影响主流程，实现方自行记录错误
type Notifier interface {
	Notify(ctx context.Context, evt Event)
}

// ==================== 日志 ====================

type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("event")}
}

func (n *LogNotifier) Notify(ctx context.Context, evt Event) {
	n.log.Info(evt.Type,
		zap.Int64("user_id", evt.UserID),
		zap.Int64("connection_id", evt.ConnectionID),
		zap.Any("payload", evt.Payload))
}

// ==================== Redis Pub/Sub ====================

type RedisNotifier struct {
	rdb     redis.UniversalClient
	channel string
	log     *zap.Logger
}

func NewRedisNotifier(rdb redis.UniversalClient, channel string, log *zap.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel, log: log.Named("event")}
}

func (n *RedisNotifier) Notify(ctx context.Context, evt Event) {
	body, err := json.Marshal(evt)
	if err != nil {
		n.log.Error("encode event failed", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, body).Err(); err != nil {
		n.log.Warn("publish event failed", zap.String("type", evt.Type), zap.String("channel", n.channel), zap.Error(err))
	}
}

// ==================== 组合 ====================

type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, evt Event) {
	for _, n := range m {
		n.Notify(ctx, evt)
	}
}

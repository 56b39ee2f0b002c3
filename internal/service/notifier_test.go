package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(ctx context.Context, evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// unreachableRedis 指向无人监听的端口
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestMultiNotifier_FansOut(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	MultiNotifier{a, b}.Notify(context.Background(), Event{Type: EventSyncCompleted, UserID: 1})

	assert.Equal(t, []string{EventSyncCompleted}, a.types())
	assert.Equal(t, []string{EventSyncCompleted}, b.types())
}

func TestLogNotifier_WritesStructuredEntry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	NewLogNotifier(zap.New(core)).Notify(context.Background(), Event{
		Type:         EventLedgerReconciled,
		UserID:       3,
		ConnectionID: 9,
		Payload:      map[string]any{"days_updated": 2},
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, EventLedgerReconciled, entry.Message)
	assert.Equal(t, int64(9), entry.ContextMap()["connection_id"])
}

func TestRedisNotifier_PublishFailureIsLogged(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	NewRedisNotifier(rdb, "portal:sync-events", zap.New(core)).
		Notify(context.Background(), Event{Type: EventSyncFailed, UserID: 1})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "publish event failed", logs.All()[0].Message)
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	_, err := NewRedisLocker(rdb, time.Second).Lock(context.Background(), "token:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis lock token:1")
}

func TestSyncService_EmitsEvents(t *testing.T) {
	env := newTestEnv(t)
	rec := &recordingNotifier{}
	env.sync.deps.Notifier = rec
	env.reconcile.deps.Notifier = rec
	ctx := context.Background()

	ok := createConnection(t, env.db, 1, "cipher")
	_, err := env.sync.Sync(ctx, ok.ID, SyncOrders, testWindow())
	require.NoError(t, err)
	_, err = env.reconcile.Reconcile(ctx, ok.ID, testWindow(), 5)
	require.NoError(t, err)

	broken := createConnection(t, env.db, 2, "")
	_, err = env.sync.Sync(ctx, broken.ID, SyncOrders, testWindow())
	require.Error(t, err)

	assert.Equal(t, []string{EventSyncCompleted, EventLedgerReconciled, EventSyncFailed}, rec.types())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, int64(2), rec.events[2].UserID)
}

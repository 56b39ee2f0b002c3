package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker 按 key 互斥，返回解锁函数
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ==================== 进程内锁 ====================

// KeyedMutex 单实例部署使用，key 无人持有或等待时即回收
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

// keyedLock 容量为 1 的 channel 充当互斥量，refs 为持有者加等待者数量
type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// ==================== Redis 分布式锁 ====================

// ErrLockTimeout 等待锁超时
var ErrLockTimeout = errors.New("获取分布式锁超时")

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 多实例部署使用，SET NX PX 加锁
type RedisLocker struct {
	rdb     redis.UniversalClient
	prefix  string
	ttl     time.Duration
	retry   time.Duration
	maxWait time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		rdb:     rdb,
		prefix:  "portal:lock:",
		ttl:     ttl,
		retry:   100 * time.Millisecond,
		maxWait: ttl,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	owner := uuid.NewString()
	deadline := time.Now().Add(l.maxWait)

	for {
		ok, err := l.rdb.SetNX(ctx, fullKey, owner, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// 使用独立 context，调用方 ctx 取消时仍能释放
				releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				releaseScript.Run(releaseCtx, l.rdb, []string{fullKey}, owner)
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

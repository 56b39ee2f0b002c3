package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== SyncRateLimiter 同步限流器 ====================

// SyncRateLimiter 手动同步冷却
// 防止用户频繁触发同步导致平台 API 限流
type SyncRateLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewSyncRateLimiter 创建限流器
func NewSyncRateLimiter() *SyncRateLimiter {
	return &SyncRateLimiter{now: time.Now}
}

// 全局限流器实例
var globalLimiter = NewSyncRateLimiter()

// GetLimiter 获取全局限流器
func GetLimiter() *SyncRateLimiter {
	return globalLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时记录本次执行时间
// key: 如 "connection:123:sync"
func (r *SyncRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(entry.lastTime)
	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *SyncRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成工具 ====================

// SyncAction 受限流的操作
type SyncAction string

const (
	ActionSync      SyncAction = "sync"
	ActionReconcile SyncAction = "reconcile"
)

// ConnectionSyncKey 连接级限流 Key
func ConnectionSyncKey(connectionID int64, action SyncAction) string {
	return fmt.Sprintf("connection:%d:%s", connectionID, action)
}

// ==================== 默认限流间隔 ====================

// DefaultIntervals 默认冷却时间
var DefaultIntervals = map[SyncAction]time.Duration{
	ActionSync:      2 * time.Minute,
	ActionReconcile: 30 * time.Second,
}

// GetInterval 获取默认间隔
func GetInterval(action SyncAction) time.Duration {
	if interval, ok := DefaultIntervals[action]; ok {
		return interval
	}
	return time.Minute
}

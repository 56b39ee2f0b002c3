package utils

import (
	"sync"
	"time"
)

// TTLCache 进程内带过期时间的缓存，用于授权 state 等短时数据
type TTLCache struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time
}

// cacheItem 内部结构，包含值和过期时间
type cacheItem struct {
	value     string
	expiresAt time.Time
}

// NewTTLCache ttl <= 0 时默认 10 分钟，足够完成授权流程
func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TTLCache{ttl: ttl, now: time.Now}
}

// Set 设置缓存
func (c *TTLCache) Set(key, value string) {
	c.items.Store(key, cacheItem{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get 获取缓存并验证是否过期
func (c *TTLCache) Get(key string) (string, bool) {
	val, ok := c.items.Load(key)
	if !ok {
		return "", false
	}
	item := val.(cacheItem)
	if c.now().After(item.expiresAt) {
		c.items.Delete(key) // 懒删除
		return "", false
	}
	return item.value, true
}

// Take 读取后立即删除 (用完即焚)
func (c *TTLCache) Take(key string) (string, bool) {
	v, ok := c.Get(key)
	if ok {
		c.items.Delete(key)
	}
	return v, ok
}

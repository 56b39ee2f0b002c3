package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 同步限流中间件 ====================

// SyncRateLimit 按连接 + 操作维度限流，应挂在连接归属校验之后
//
// 使用示例:
//
//	conns.POST("/:id/sync",
//	    syncCtl.RequireOwner(),
//	    middleware.SyncRateLimit(limiter, middleware.ActionSync, 0),
//	    syncCtl.SyncConnection,
//	)
//
// interval 为 0 时使用默认值
func SyncRateLimit(limiter *SyncRateLimiter, action SyncAction, interval time.Duration) gin.HandlerFunc {
	if limiter == nil {
		limiter = GetLimiter()
	}
	if interval == 0 {
		interval = GetInterval(action)
	}

	return func(c *gin.Context) {
		connectionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || connectionID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的连接 ID",
			})
			c.Abort()
			return
		}

		key := ConnectionSyncKey(connectionID, action)
		result := limiter.Check(key, interval)
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(retrySeconds(result.RetryAfter)))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retrySeconds(result.RetryAfter),
					"action":      action,
				},
			})
			c.Abort()
			return
		}

		c.Next()

		// 参数错误时什么都没执行，归还冷却
		if c.Writer.Status() == http.StatusBadRequest {
			limiter.Reset(key)
		}
	}
}

// ==================== 辅助函数 ====================

// retrySeconds 向上取整，避免提示 0 秒
func retrySeconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := retrySeconds(d)

	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", minutes)
	}

	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}

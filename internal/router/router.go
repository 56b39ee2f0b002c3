package router

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"accelerator_sync_v1/internal/controller"
	"accelerator_sync_v1/internal/middleware"

	_ "accelerator_sync_v1/docs"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Connection *controller.ConnectionController
	Sync       *controller.SyncController
	Ledger     *controller.LedgerController
}

// RoleAdmin 可触发全量同步的角色
const RoleAdmin = "admin"

// Options 路由选项
type Options struct {
	// SyncCooldown 同一连接两次手动同步的最小间隔，0 使用默认值
	SyncCooldown time.Duration
	Limiter      *middleware.SyncRateLimiter
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctl Controllers, opts Options) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.GetLimiter()
	}

	// 2. API 路由组
	v1 := r.Group("/api/v1")
	{
		// 授权回调由平台跳转，不带 JWT，靠 state 识别用户
		v1.GET("/oauth/callback", ctl.Connection.Callback)

		authed := v1.Group("", middleware.JWTAuth())

		// GET /api/v1/oauth/authorize
		authed.GET("/oauth/authorize", ctl.Connection.Authorize)

		conns := authed.Group("/connections")
		{
			conns.GET("", ctl.Connection.List)
			conns.DELETE("/:id", ctl.Connection.Delete)

			// 先校验归属再限流，越权请求不会占用冷却
			conns.POST("/:id/sync",
				ctl.Sync.RequireOwner(),
				middleware.SyncRateLimit(limiter, middleware.ActionSync, opts.SyncCooldown),
				ctl.Sync.SyncConnection)
			conns.POST("/:id/reconcile",
				ctl.Sync.RequireOwner(),
				middleware.SyncRateLimit(limiter, middleware.ActionReconcile, 0),
				ctl.Sync.ReconcileConnection)
		}

		if ctl.Ledger != nil {
			authed.GET("/ledger", ctl.Ledger.List)
			authed.GET("/ledger/:date/sync-log", ctl.Ledger.SyncLog)
		}

		admin := authed.Group("/admin", middleware.RequireRole(RoleAdmin))
		admin.POST("/sync-all", ctl.Sync.SyncAll)
	}
}

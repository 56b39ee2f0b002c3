package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"accelerator_sync_v1/internal/config"
	"accelerator_sync_v1/internal/controller"
	"accelerator_sync_v1/internal/middleware"
	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/repository"
	"accelerator_sync_v1/internal/router"
	"accelerator_sync_v1/internal/service"
	"accelerator_sync_v1/internal/task"
	"accelerator_sync_v1/pkg/database"
	"accelerator_sync_v1/pkg/logger"
	"accelerator_sync_v1/pkg/tiktok"
	"accelerator_sync_v1/pkg/utils"
)

func main() {
	// 1. 配置与日志
	cfg, err := config.Load()
	if err != nil {
		// 日志尚未初始化
		zap.NewExample().Fatal("加载配置失败", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer func() { _ = log.Sync() }()

	// 2. 初始化数据库
	db, err := database.InitDB(database.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}, log, model.AllModels()...)
	if err != nil {
		log.Fatal("数据库初始化失败", zap.Error(err))
	}

	// 3. 初始化依赖
	deps, err := initDependencies(cfg, db, log)
	if err != nil {
		log.Fatal("依赖初始化失败", zap.Error(err))
	}

	// 4. 启动定时任务
	if err := deps.Tasks.Start(); err != nil {
		log.Fatal("定时任务启动失败", zap.Error(err))
	}

	// 5. 初始化路由并启动服务
	startServer(cfg, deps, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB       *gorm.DB
	Redis    redis.UniversalClient
	Repos    *Repositories
	Services *Services
	Tasks    *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	Connection repository.ConnectionRepository
	Order      repository.OrderRepository
	Affiliate  repository.AffiliateOrderRepository
	Settlement repository.SettlementRepository
	Product    repository.ProductRepository
	Ledger     repository.LedgerRepository
}

// Services 服务集合
type Services struct {
	Token      *service.TokenService
	Sync       *service.SyncService
	Reconcile  *service.ReconcileService
	Connection *service.ConnectionService
	Ledger     *service.LedgerService
}

// ==================== 初始化函数 ====================

func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Connection: repository.NewConnectionRepository(db),
		Order:      repository.NewOrderRepository(db),
		Affiliate:  repository.NewAffiliateOrderRepository(db),
		Settlement: repository.NewSettlementRepository(db),
		Product:    repository.NewProductRepository(db),
		Ledger:     repository.NewLedgerRepository(db),
	}
}

// initRedis 未配置地址时返回 nil，锁与通知退化为进程内实现
func initRedis(cfg *config.Config, log *zap.Logger) redis.UniversalClient {
	if cfg.Redis.Addr == "" {
		log.Info("redis disabled, using in-process locker")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, using in-process locker", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*Dependencies, error) {
	// -------- Repo 层 --------
	repos := initRepositories(db)

	// -------- 平台客户端 --------
	client, err := tiktok.NewClient(tiktok.Config{
		AppKey:      cfg.Platform.AppKey,
		AppSecret:   cfg.Platform.AppSecret,
		APIBaseURL:  cfg.Platform.APIBaseURL,
		AuthBaseURL: cfg.Platform.AuthBaseURL,
		Timeout:     cfg.Platform.Timeout,
		Debug:       cfg.Platform.Debug,
	})
	if err != nil {
		return nil, err
	}

	// -------- 锁 & 通知 --------
	rdb := initRedis(cfg, log)
	var locker service.Locker = service.NewKeyedMutex()
	notifiers := service.MultiNotifier{service.NewLogNotifier(log)}
	if rdb != nil {
		locker = service.NewRedisLocker(rdb, cfg.Scheduler.RefreshLockTTL)
		notifiers = append(notifiers, service.NewRedisNotifier(rdb, cfg.Redis.Channel, log))
	}

	// -------- 业务服务 --------
	tokens := service.NewTokenService(repos.Connection, client, locker, log)
	services := &Services{
		Token: tokens,
		Sync: service.NewSyncService(service.SyncServiceDeps{
			ConnRepo:       repos.Connection,
			OrderRepo:      repos.Order,
			AffiliateRepo:  repos.Affiliate,
			SettlementRepo: repos.Settlement,
			ProductRepo:    repos.Product,
			Tokens:         tokens,
			Client:         client,
			Notifier:       notifiers,
		}, service.SyncConfig{PageSize: cfg.Platform.PageSize, Platform: cfg.Platform.Name}, log),
		Reconcile: service.NewReconcileService(service.ReconcileServiceDeps{
			ConnRepo:       repos.Connection,
			OrderRepo:      repos.Order,
			AffiliateRepo:  repos.Affiliate,
			SettlementRepo: repos.Settlement,
			ProductRepo:    repos.Product,
			LedgerRepo:     repos.Ledger,
			Notifier:       notifiers,
		}, cfg.Platform.Name, log),
		Connection: service.NewConnectionService(repos.Connection, client, utils.NewTTLCache(10*time.Minute), service.ConnectionConfig{
			AuthorizeURL: cfg.Platform.AuthorizeURL,
			ServiceID:    cfg.Platform.ServiceID,
			Platform:     cfg.Platform.Name,
		}, log),
		Ledger: service.NewLedgerService(repos.Ledger, repos.Product, cfg.Platform.Name),
	}

	// -------- 定时任务 --------
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		Connections: repos.Connection,
		Syncer:      services.Sync,
		Reconciler:  services.Reconcile,
		Tokens:      tokens,
	}, &task.TaskManagerConfig{
		Enabled:         cfg.Scheduler.Enabled,
		SyncCron:        cfg.Scheduler.SyncCron,
		SyncWindowDays:  cfg.Scheduler.SyncWindowDays,
		SyncConcurrency: cfg.Scheduler.MaxConcurrent,
		FeePercent:      cfg.Platform.PlatformFeePercent,
		TokenCron:       cfg.Scheduler.TokenCron,
		TokenLookAhead:  cfg.Scheduler.TokenLookAhead,
		StaleSyncAfter:  cfg.Scheduler.StaleSyncAfter,
	}, log)

	return &Dependencies{
		DB:       db,
		Redis:    rdb,
		Repos:    repos,
		Services: services,
		Tasks:    tasks,
	}, nil
}

// ==================== 服务启动 ====================

func startServer(cfg *config.Config, deps *Dependencies, log *zap.Logger) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	jwtCfg := middleware.DefaultJWTConfig()
	jwtCfg.SecretKey = cfg.JWT.Secret
	middleware.SetJWTConfig(jwtCfg)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestContext(log))
	router.InitRoutes(r, router.Controllers{
		Connection: controller.NewConnectionController(deps.Services.Connection),
		Sync:       controller.NewSyncController(deps.Tasks, deps.Services.Connection),
		Ledger:     controller.NewLedgerController(deps.Services.Ledger),
	}, router.Options{SyncCooldown: cfg.HTTP.SyncCooldown})

	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务强制关闭", zap.Error(err))
	}
	deps.Tasks.Stop()
	if deps.Redis != nil {
		_ = deps.Redis.Close()
	}
	if sqlDB, err := deps.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("服务已退出")
}

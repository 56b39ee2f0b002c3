package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Platform  PlatformConfig
	Scheduler SchedulerConfig
	HTTP      HTTPConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string // silent, error, warn, info
}

// RedisConfig Addr 为空时不启用 Redis (锁与通知退化为进程内实现)
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type JWTConfig struct {
	Secret string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// PlatformConfig 电商平台开放接口
type PlatformConfig struct {
	AppKey             string
	AppSecret          string
	ServiceID          string
	APIBaseURL         string
	AuthBaseURL        string
	AuthorizeURL       string
	Timeout            time.Duration
	PageSize           int
	PlatformFeePercent float64
	Name               string // 写入账本的 platform 标记
	Debug              bool
}

type SchedulerConfig struct {
	Enabled        bool
	SyncCron       string
	TokenCron      string
	SyncWindowDays int
	TokenLookAhead time.Duration
	MaxConcurrent  int
	RefreshLockTTL time.Duration
	StaleSyncAfter time.Duration
}

type HTTPConfig struct {
	SyncCooldown time.Duration
}

// 配置错误，启动即失败
var (
	ErrMissingAppKey    = errors.New("config: platform.app_key is required")
	ErrMissingAppSecret = errors.New("config: platform.app_secret is required")
	ErrMissingJWTSecret = errors.New("config: jwt.secret is required")
)

// Load 读取 config.toml，环境变量 PORTAL_ 前缀覆盖
// 例如 PORTAL_PLATFORM_APP_SECRET 覆盖 platform.app_secret
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Channel:  v.GetString("redis.channel"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Platform: PlatformConfig{
			AppKey:             v.GetString("platform.app_key"),
			AppSecret:          v.GetString("platform.app_secret"),
			ServiceID:          v.GetString("platform.service_id"),
			APIBaseURL:         v.GetString("platform.api_base_url"),
			AuthBaseURL:        v.GetString("platform.auth_base_url"),
			AuthorizeURL:       v.GetString("platform.authorize_url"),
			Timeout:            v.GetDuration("platform.timeout"),
			PageSize:           v.GetInt("platform.page_size"),
			PlatformFeePercent: v.GetFloat64("platform.fee_percent"),
			Name:               v.GetString("platform.name"),
			Debug:              v.GetBool("platform.debug"),
		},
		Scheduler: SchedulerConfig{
			Enabled:        v.GetBool("scheduler.enabled"),
			SyncCron:       v.GetString("scheduler.sync_cron"),
			TokenCron:      v.GetString("scheduler.token_cron"),
			SyncWindowDays: v.GetInt("scheduler.sync_window_days"),
			TokenLookAhead: v.GetDuration("scheduler.token_look_ahead"),
			MaxConcurrent:  v.GetInt("scheduler.max_concurrent"),
			RefreshLockTTL: v.GetDuration("scheduler.refresh_lock_ttl"),
			StaleSyncAfter: v.GetDuration("scheduler.stale_sync_after"),
		},
		HTTP: HTTPConfig{
			SyncCooldown: v.GetDuration("http.sync_cooldown"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "accelerator-sync")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=portal port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "portal:sync-events")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("platform.api_base_url", "https://open-api.tiktokglobalshop.com")
	v.SetDefault("platform.auth_base_url", "https://auth.tiktok-shops.com")
	v.SetDefault("platform.authorize_url", "https://services.tiktokshop.com/open/authorize")
	v.SetDefault("platform.timeout", 20*time.Second)
	v.SetDefault("platform.page_size", 50)
	v.SetDefault("platform.fee_percent", 6.0)
	v.SetDefault("platform.name", "tiktok")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sync_cron", "0 15 */2 * * *")
	v.SetDefault("scheduler.token_cron", "0 */30 * * * *")
	v.SetDefault("scheduler.sync_window_days", 7)
	v.SetDefault("scheduler.token_look_ahead", 2*time.Hour)
	v.SetDefault("scheduler.max_concurrent", 3)
	v.SetDefault("scheduler.refresh_lock_ttl", 30*time.Second)
	v.SetDefault("scheduler.stale_sync_after", 30*time.Minute)

	v.SetDefault("http.sync_cooldown", 2*time.Minute)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Platform.AppKey) == "" {
		return ErrMissingAppKey
	}
	if strings.TrimSpace(c.Platform.AppSecret) == "" {
		return ErrMissingAppSecret
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrMissingJWTSecret
	}
	if c.Platform.PageSize <= 0 || c.Platform.PageSize > 100 {
		return fmt.Errorf("config: platform.page_size must be in (0, 100], got %d", c.Platform.PageSize)
	}
	if c.Platform.PlatformFeePercent < 0 || c.Platform.PlatformFeePercent > 100 {
		return fmt.Errorf("config: platform.fee_percent must be in [0, 100], got %v", c.Platform.PlatformFeePercent)
	}
	if c.Scheduler.SyncWindowDays <= 0 {
		return fmt.Errorf("config: scheduler.sync_window_days must be positive, got %d", c.Scheduler.SyncWindowDays)
	}
	return nil
}

// IsProduction 生产环境使用 JSON 日志
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

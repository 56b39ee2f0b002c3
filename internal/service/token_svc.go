package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/repository"
)

// tokenRefreshMargin 距过期不足该时长即刷新
const tokenRefreshMargin = 5 * time.Minute

// ValidToken 可直接使用的 access token 及对应连接
type ValidToken struct {
	AccessToken string
	Connection  *model.Connection
}

// TokenProvider SyncService 只依赖这一方法
type TokenProvider interface {
	GetValidToken(ctx context.Context, connectionID int64) (*ValidToken, error)
}

// TokenService 管理连接凭证的生命周期
type TokenService struct {
	connRepo repository.ConnectionRepository
	client   PlatformClient
	locker   Locker
	log      *zap.Logger
	now      func() time.Time
}

// NewTokenService locker 为 nil 时使用进程内锁
func NewTokenService(connRepo repository.ConnectionRepository, client PlatformClient, locker Locker, log *zap.Logger) *TokenService {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &TokenService{
		connRepo: connRepo,
		client:   client,
		locker:   locker,
		log:      log.Named("token"),
		now:      time.Now,
	}
}

// GetValidToken 返回当前可用的 access token
// 快路径不发网络请求；需要刷新时按连接加锁，避免并发刷新互相作废 refresh token
func (s *TokenService) GetValidToken(ctx context.Context, connectionID int64) (*ValidToken, error) {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if conn.TokenValidFor(s.now(), tokenRefreshMargin) {
		return &ValidToken{AccessToken: conn.AccessToken, Connection: conn}, nil
	}

	unlock, err := s.locker.Lock(ctx, "token:"+strconv.FormatInt(connectionID, 10))
	if err != nil {
		return s.fallback(conn, err)
	}
	defer unlock()

	// 双重检查：等锁期间可能已被其他调用方刷新
	conn, err = s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if conn.TokenValidFor(s.now(), tokenRefreshMargin) {
		return &ValidToken{AccessToken: conn.AccessToken, Connection: conn}, nil
	}

	return s.refresh(ctx, conn)
}

func (s *TokenService) refresh(ctx context.Context, conn *model.Connection) (*ValidToken, error) {
	pair, err := s.client.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		return s.fallback(conn, err)
	}

	update := repository.TokenUpdate{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt(),
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt(),
	}
	if update.RefreshToken == "" {
		update.RefreshToken = conn.RefreshToken
		update.RefreshTokenExpiresAt = conn.RefreshTokenExpiresAt
	}

	swapped, err := s.connRepo.UpdateTokens(ctx, conn.ID, conn.RefreshToken, update)
	switch {
	case err != nil:
		// 新 token 已生效，落库失败只记录，不影响本次调用
		s.log.Error("persist refreshed token failed", zap.Int64("connection_id", conn.ID), zap.Error(err))
	case !swapped:
		// 其他实例已先一步写入，以库中为准
		if latest, err := s.connRepo.GetByID(ctx, conn.ID); err == nil && latest.TokenValidFor(s.now(), 0) {
			return &ValidToken{AccessToken: latest.AccessToken, Connection: latest}, nil
		}
	}

	conn.AccessToken = update.AccessToken
	conn.RefreshToken = update.RefreshToken
	conn.AccessTokenExpiresAt = update.AccessTokenExpiresAt
	conn.RefreshTokenExpiresAt = update.RefreshTokenExpiresAt

	s.log.Info("access token refreshed",
		zap.Int64("connection_id", conn.ID),
		zap.Time("expires_at", conn.AccessTokenExpiresAt))
	return &ValidToken{AccessToken: conn.AccessToken, Connection: conn}, nil
}

// fallback 刷新失败时，旧 token 只要尚未真正过期就继续使用
func (s *TokenService) fallback(conn *model.Connection, cause error) (*ValidToken, error) {
	if conn.TokenValidFor(s.now(), 0) {
		s.log.Warn("token refresh failed, using current token",
			zap.Int64("connection_id", conn.ID),
			zap.Time("expires_at", conn.AccessTokenExpiresAt),
			zap.Error(cause))
		return &ValidToken{AccessToken: conn.AccessToken, Connection: conn}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrTokenExpired, cause)
}

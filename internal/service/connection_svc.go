package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/repository"
	"accelerator_sync_v1/pkg/utils"
)

// ConnectionConfig 授权相关配置
type ConnectionConfig struct {
	AuthorizeURL string
	ServiceID    string
	Platform     string
}

// ConnectionService 店铺授权接入与解绑
type ConnectionService struct {
	connRepo repository.ConnectionRepository
	client   PlatformClient
	states   *utils.TTLCache
	cfg      ConnectionConfig
	log      *zap.Logger
}

func NewConnectionService(connRepo repository.ConnectionRepository, client PlatformClient, states *utils.TTLCache, cfg ConnectionConfig, log *zap.Logger) *ConnectionService {
	if states == nil {
		states = utils.NewTTLCache(0)
	}
	if cfg.Platform == "" {
		cfg.Platform = "tiktok"
	}
	return &ConnectionService{
		connRepo: connRepo,
		client:   client,
		states:   states,
		cfg:      cfg,
		log:      log.Named("connection"),
	}
}

// BuildAuthorizeURL 生成授权链接，state 缓存当前用户
func (s *ConnectionService) BuildAuthorizeURL(ctx context.Context, userID int64) (string, error) {
	base, err := url.Parse(s.cfg.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("授权地址配置错误: %w", err)
	}

	state := uuid.NewString()
	s.states.Set(state, strconv.FormatInt(userID, 10))

	q := base.Query()
	q.Set("service_id", s.cfg.ServiceID)
	q.Set("state", state)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// HandleCallback 授权回调：校验 state -> 换 token -> 新建或更新连接
// 同一用户重复授权同一卖家时复用原连接
func (s *ConnectionService) HandleCallback(ctx context.Context, code, state string) (*model.Connection, error) {
	cached, ok := s.states.Take(state)
	if !ok {
		return nil, ErrInvalidState
	}
	userID, err := strconv.ParseInt(cached, 10, 64)
	if err != nil {
		return nil, ErrInvalidState
	}

	pair, err := s.client.ExchangeAuthCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("换取 Token 失败: %w", err)
	}
	tokens := repository.TokenUpdate{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt(),
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt(),
	}

	existing, err := s.connRepo.FindByUserAndOpenID(ctx, userID, pair.OpenID)
	switch {
	case err == nil:
		if err := s.connRepo.ReplaceTokens(ctx, existing.ID, tokens); err != nil {
			return nil, err
		}
		s.log.Info("connection re-authorized", zap.Int64("user_id", userID), zap.Int64("connection_id", existing.ID))
		return s.connRepo.GetByID(ctx, existing.ID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	conn := &model.Connection{
		UserID:                userID,
		Platform:              s.cfg.Platform,
		OpenID:                pair.OpenID,
		SellerName:            pair.SellerName,
		AccessToken:           tokens.AccessToken,
		RefreshToken:          tokens.RefreshToken,
		AccessTokenExpiresAt:  tokens.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokens.RefreshTokenExpiresAt,
		ShopRegion:            pair.SellerBaseRegion,
		SyncStatus:            model.SyncStatusIdle,
	}
	if err := s.connRepo.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("保存连接失败: %w", err)
	}
	s.log.Info("connection created", zap.Int64("user_id", userID), zap.Int64("connection_id", conn.ID))
	return conn, nil
}

// List 当前用户的连接
func (s *ConnectionService) List(ctx context.Context, userID int64) ([]model.Connection, error) {
	return s.connRepo.ListByUserID(ctx, userID)
}

// Get 校验归属
func (s *ConnectionService) Get(ctx context.Context, userID, connectionID int64) (*model.Connection, error) {
	conn, err := s.connRepo.GetByUserAndID(ctx, userID, connectionID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return conn, nil
}

// Disconnect 解绑，已同步的历史数据保留
func (s *ConnectionService) Disconnect(ctx context.Context, userID, connectionID int64) error {
	if err := s.connRepo.Delete(ctx, userID, connectionID); err != nil {
		return mapNotFound(err)
	}
	s.log.Info("connection removed", zap.Int64("user_id", userID), zap.Int64("connection_id", connectionID))
	return nil
}

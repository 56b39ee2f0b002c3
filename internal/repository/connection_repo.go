package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"accelerator_sync_v1/internal/model"
)

// ==================== 接口定义 ====================

// ConnectionRepository 店铺连接仓储
type ConnectionRepository interface {
	Create(ctx context.Context, conn *model.Connection) error
	GetByID(ctx context.Context, id int64) (*model.Connection, error)
	GetByUserAndID(ctx context.Context, userID, id int64) (*model.Connection, error)
	FindByUserAndOpenID(ctx context.Context, userID int64, openID string) (*model.Connection, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Connection, error)
	ListBySyncStatus(ctx context.Context, status string) ([]model.Connection, error)
	ListStaleSyncing(ctx context.Context, before time.Time) ([]model.Connection, error)
	ListExpiring(ctx context.Context, before time.Time) ([]model.Connection, error)
	Delete(ctx context.Context, userID, id int64) error

	// Token 相关 (仅 TokenService 调用)
	UpdateTokens(ctx context.Context, id int64, oldRefreshToken string, tokens TokenUpdate) (bool, error)
	ReplaceTokens(ctx context.Context, id int64, tokens TokenUpdate) error

	// 同步状态 (仅 SyncService 调用)
	UpdateShop(ctx context.Context, id int64, shop ShopUpdate) error
	MarkSyncing(ctx context.Context, id int64) error
	MarkIdle(ctx context.Context, id int64, at time.Time) error
	MarkError(ctx context.Context, id int64, message string) error
}

// TokenUpdate 新凭证
type TokenUpdate struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

// ShopUpdate 首次同步发现的店铺信息
type ShopUpdate struct {
	Cipher string
	ShopID string
	Name   string
	Region string
}

// ==================== 仓储实现 ====================

type connectionRepo struct {
	db *gorm.DB
}

// NewConnectionRepository 创建连接仓储
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) Create(ctx context.Context, conn *model.Connection) error {
	return r.db.WithContext(ctx).Create(conn).Error
}

func (r *connectionRepo) GetByID(ctx context.Context, id int64) (*model.Connection, error) {
	var conn model.Connection
	if err := r.db.WithContext(ctx).First(&conn, id).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) GetByUserAndID(ctx context.Context, userID, id int64) (*model.Connection, error) {
	var conn model.Connection
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) FindByUserAndOpenID(ctx context.Context, userID int64, openID string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND open_id = ?", userID, openID).
		Order("id DESC").
		First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Connection, error) {
	var conns []model.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&conns).Error
	return conns, err
}

func (r *connectionRepo) ListBySyncStatus(ctx context.Context, status string) ([]model.Connection, error) {
	var conns []model.Connection
	err := r.db.WithContext(ctx).
		Where("sync_status = ?", status).
		Order("id ASC").
		Find(&conns).Error
	return conns, err
}

// ListStaleSyncing 处于 syncing 且 before 之后没有任何状态更新的连接 (进程中断遗留)
func (r *connectionRepo) ListStaleSyncing(ctx context.Context, before time.Time) ([]model.Connection, error) {
	var conns []model.Connection
	err := r.db.WithContext(ctx).
		Where("sync_status = ? AND updated_at < ?", model.SyncStatusSyncing, before).
		Order("id ASC").
		Find(&conns).Error
	return conns, err
}

// ListExpiring 查找 access token 将在 before 之前过期、且 refresh token 仍有效的连接
func (r *connectionRepo) ListExpiring(ctx context.Context, before time.Time) ([]model.Connection, error) {
	var conns []model.Connection
	err := r.db.WithContext(ctx).
		Where("access_token_expires_at < ?", before).
		Where("refresh_token <> '' AND refresh_token_expires_at > ?", time.Now()).
		Order("access_token_expires_at ASC").
		Find(&conns).Error
	return conns, err
}

// Delete 只删除连接本身，已同步的订单/结算等历史数据保留
func (r *connectionRepo) Delete(ctx context.Context, userID, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Connection{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateTokens 以旧 refresh token 作为 CAS 条件写入新凭证
// 返回 false 表示已被其他实例抢先刷新
func (r *connectionRepo) UpdateTokens(ctx context.Context, id int64, oldRefreshToken string, tokens TokenUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Connection{}).
		Where("id = ? AND refresh_token = ?", id, oldRefreshToken).
		Updates(tokenFields(tokens))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReplaceTokens 重新授权时无条件覆盖
func (r *connectionRepo) ReplaceTokens(ctx context.Context, id int64, tokens TokenUpdate) error {
	return r.db.WithContext(ctx).
		Model(&model.Connection{}).
		Where("id = ?", id).
		Updates(tokenFields(tokens)).Error
}

func tokenFields(t TokenUpdate) map[string]interface{} {
	return map[string]interface{}{
		"access_token":             t.AccessToken,
		"refresh_token":            t.RefreshToken,
		"access_token_expires_at":  t.AccessTokenExpiresAt,
		"refresh_token_expires_at": t.RefreshTokenExpiresAt,
	}
}

func (r *connectionRepo) UpdateShop(ctx context.Context, id int64, shop ShopUpdate) error {
	return r.db.WithContext(ctx).
		Model(&model.Connection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"shop_cipher": shop.Cipher,
			"shop_id":     shop.ShopID,
			"shop_name":   shop.Name,
			"shop_region": shop.Region,
		}).Error
}

func (r *connectionRepo) MarkSyncing(ctx context.Context, id int64) error {
	return r.updateStatus(ctx, id, map[string]interface{}{
		"sync_status": model.SyncStatusSyncing,
		"sync_error":  "",
	})
}

func (r *connectionRepo) MarkIdle(ctx context.Context, id int64, at time.Time) error {
	return r.updateStatus(ctx, id, map[string]interface{}{
		"sync_status":  model.SyncStatusIdle,
		"sync_error":   "",
		"last_sync_at": at,
	})
}

func (r *connectionRepo) MarkError(ctx context.Context, id int64, message string) error {
	return r.updateStatus(ctx, id, map[string]interface{}{
		"sync_status": model.SyncStatusError,
		"sync_error":  message,
	})
}

func (r *connectionRepo) updateStatus(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Connection{}).Where("id = ?", id).Updates(fields).Error
}

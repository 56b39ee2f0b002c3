package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"accelerator_sync_v1/internal/api/dto"
	"accelerator_sync_v1/internal/middleware"
	"accelerator_sync_v1/internal/model"
)

// ConnectionManager 店铺连接管理 (service.ConnectionService)
type ConnectionManager interface {
	ConnectionOwner
	List(ctx context.Context, userID int64) ([]model.Connection, error)
	Disconnect(ctx context.Context, userID, connectionID int64) error
	BuildAuthorizeURL(ctx context.Context, userID int64) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*model.Connection, error)
}

type ConnectionController struct {
	svc ConnectionManager
}

func NewConnectionController(svc ConnectionManager) *ConnectionController {
	return &ConnectionController{svc: svc}
}

// List 当前用户的店铺连接
// @Summary 店铺连接列表
// @Tags Connection
// @Produce json
// @Success 200 {object} dto.ConnectionListResp
// @Router /api/v1/connections [get]
func (c *ConnectionController) List(ctx *gin.Context) {
	list, err := c.svc.List(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	resp := dto.ConnectionListResp{Total: len(list), List: make([]dto.ConnectionVO, 0, len(list))}
	for i := range list {
		resp.List = append(resp.List, toConnectionVO(&list[i]))
	}
	respondOK(ctx, "success", resp)
}

// Delete 解绑店铺
// @Summary 解绑店铺
// @Description 只删除连接本身，已同步的订单与账本保留
// @Tags Connection
// @Param id path int true "连接 ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "连接不存在"
// @Router /api/v1/connections/{id} [delete]
func (c *ConnectionController) Delete(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}
	if err := c.svc.Disconnect(ctx.Request.Context(), middleware.GetUserID(ctx), id); err != nil {
		respondServiceError(ctx, err)
		return
	}
	respondOK(ctx, "已解绑", gin.H{"id": id})
}

// Authorize 获取授权链接
// @Summary 获取店铺授权链接
// @Tags OAuth
// @Produce json
// @Success 200 {object} dto.AuthorizeResp
// @Router /api/v1/oauth/authorize [get]
func (c *ConnectionController) Authorize(ctx *gin.Context) {
	link, err := c.svc.BuildAuthorizeURL(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	respondOK(ctx, "success", dto.AuthorizeResp{URL: link})
}

// Callback 授权回调
// @Summary 店铺授权回调
// @Tags OAuth
// @Param code query string true "授权码"
// @Param state query string true "state"
// @Success 200 {object} dto.ConnectionVO
// @Failure 400 {object} map[string]interface{} "state 无效"
// @Router /api/v1/oauth/callback [get]
func (c *ConnectionController) Callback(ctx *gin.Context) {
	var req dto.OAuthCallbackReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	conn, err := c.svc.HandleCallback(ctx.Request.Context(), req.Code, req.State)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	respondOK(ctx, "授权成功", toConnectionVO(conn))
}

func toConnectionVO(m *model.Connection) dto.ConnectionVO {
	return dto.ConnectionVO{
		ID:                   m.ID,
		Platform:             m.Platform,
		SellerName:           m.SellerName,
		ShopID:               m.ShopID,
		ShopName:             m.ShopName,
		ShopRegion:           m.ShopRegion,
		SyncStatus:           m.SyncStatus,
		SyncError:            m.SyncError,
		LastSyncAt:           m.LastSyncAt,
		AccessTokenExpiresAt: m.AccessTokenExpiresAt,
		CreatedAt:            m.CreatedAt,
	}
}

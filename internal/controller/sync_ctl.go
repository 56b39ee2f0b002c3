package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"accelerator_sync_v1/internal/api/dto"
	"accelerator_sync_v1/internal/middleware"
	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/service"
	"accelerator_sync_v1/pkg/tiktok"
)

// SyncTrigger 手动同步/对账入口 (task.TaskManager)
type SyncTrigger interface {
	TriggerSync(ctx context.Context, connectionID int64, syncType service.SyncType, window tiktok.Window) (*service.SyncResult, error)
	TriggerReconcile(ctx context.Context, connectionID int64, window tiktok.Window, feePercent float64) (*service.ReconcileResult, error)
	TriggerAllSync() error
	DefaultWindow() tiktok.Window
	DefaultFeePercent() float64
}

// ConnectionOwner 校验连接归属
type ConnectionOwner interface {
	Get(ctx context.Context, userID, connectionID int64) (*model.Connection, error)
}

// SyncController 同步控制器
type SyncController struct {
	trigger SyncTrigger
	owner   ConnectionOwner
}

// NewSyncController 创建同步控制器
func NewSyncController(trigger SyncTrigger, owner ConnectionOwner) *SyncController {
	return &SyncController{trigger: trigger, owner: owner}
}

const ctxKeyConnection = "connection"

// RequireOwner 校验 :id 连接属于当前用户，需放在限流中间件之前
func (c *SyncController) RequireOwner() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := parseID(ctx, "id")
		if id == 0 {
			ctx.Abort()
			return
		}
		conn, err := c.owner.Get(ctx.Request.Context(), middleware.GetUserID(ctx), id)
		if err != nil {
			respondServiceError(ctx, err)
			ctx.Abort()
			return
		}
		ctx.Set(ctxKeyConnection, conn)
		ctx.Next()
	}
}

// ownedConnection 优先取 RequireOwner 已加载的连接
func (c *SyncController) ownedConnection(ctx *gin.Context, id int64) bool {
	if v, ok := ctx.Get(ctxKeyConnection); ok {
		if conn, ok := v.(*model.Connection); ok && conn.ID == id {
			return true
		}
	}
	if _, err := c.owner.Get(ctx.Request.Context(), middleware.GetUserID(ctx), id); err != nil {
		respondServiceError(ctx, err)
		return false
	}
	return true
}

// ==================== Handler 实现 ====================

// SyncConnection 手动同步单个连接
// @Summary 手动同步店铺数据
// @Description 拉取时间窗口内的订单、联盟订单、结算单与商品；sync_type 为空表示全部
// @Tags Sync
// @Accept json
// @Produce json
// @Param id path int true "连接 ID"
// @Param request body dto.SyncRequest false "同步参数"
// @Success 200 {object} dto.SyncResponse
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 404 {object} map[string]interface{} "连接不存在"
// @Failure 422 {object} map[string]interface{} "需要重新授权"
// @Failure 429 {object} map[string]interface{} "限流中"
// @Router /api/v1/connections/{id}/sync [post]
func (c *SyncController) SyncConnection(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	var req dto.SyncRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
			return
		}
	}

	syncType, err := service.ParseSyncType(req.SyncType)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	window, err := parseWindow(req.StartDate, req.EndDate, c.trigger.DefaultWindow())
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	if !c.ownedConnection(ctx, id) {
		return
	}

	result, err := c.trigger.TriggerSync(ctx.Request.Context(), id, syncType, window)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	respondOK(ctx, "同步完成", toSyncResponse(result))
}

// ReconcileConnection 手动对账
// @Summary 生成每日账本
// @Description 按 UTC 自然日汇总已同步的数据，只更新同步字段，手填字段保持不变
// @Tags Sync
// @Accept json
// @Produce json
// @Param id path int true "连接 ID"
// @Param request body dto.ReconcileRequest false "对账参数"
// @Success 200 {object} dto.ReconcileResponse
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 404 {object} map[string]interface{} "连接不存在"
// @Router /api/v1/connections/{id}/reconcile [post]
func (c *SyncController) ReconcileConnection(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	var req dto.ReconcileRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
			return
		}
	}

	window, err := parseWindow(req.StartDate, req.EndDate, c.trigger.DefaultWindow())
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	fee := c.trigger.DefaultFeePercent()
	if req.PlatformFeePercent != nil {
		fee = *req.PlatformFeePercent
		if fee < 0 || fee > 100 {
			respondError(ctx, http.StatusBadRequest, "platform_fee_percent 必须在 0-100 之间")
			return
		}
	}

	if !c.ownedConnection(ctx, id) {
		return
	}

	result, err := c.trigger.TriggerReconcile(ctx.Request.Context(), id, window, fee)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	respondOK(ctx, "对账完成", dto.ReconcileResponse{
		ConnectionID: id,
		DaysUpdated:  result.DaysUpdated,
		Days:         result.Days,
	})
}

// SyncAll 立即对所有连接执行一轮定时同步 (后台执行)
// @Summary 触发全量同步
// @Tags Admin
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{} "需要管理员权限"
// @Failure 409 {object} map[string]interface{} "定时任务未启用"
// @Router /api/v1/admin/sync-all [post]
func (c *SyncController) SyncAll(ctx *gin.Context) {
	if err := c.trigger.TriggerAllSync(); err != nil {
		respondError(ctx, http.StatusConflict, err.Error())
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{
		"code":    202,
		"message": "已开始全量同步",
	})
}

func toSyncResponse(r *service.SyncResult) dto.SyncResponse {
	resp := dto.SyncResponse{
		ConnectionID: r.ConnectionID,
		SyncType:     string(r.SyncType),
		WindowStart:  r.WindowStart,
		WindowEnd:    r.WindowEnd,
		Results:      make(map[string]dto.EntityResultVO, len(r.Entities)),
		DurationMs:   r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
	for entity, res := range r.Entities {
		resp.Results[string(entity)] = dto.EntityResultVO{
			Status:  string(res.Status),
			Count:   res.Count,
			Created: res.Created,
			Retired: res.Retired,
			Reason:  res.Reason,
		}
	}
	return resp
}

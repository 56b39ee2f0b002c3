package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/service"
	"accelerator_sync_v1/pkg/tiktok"
)

// ==================== 统一响应 ====================

func respondOK(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": message,
		"data":    data,
	})
}

func respondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// respondServiceError 业务错误 -> HTTP 状态码
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConnectionNotFound),
		errors.Is(err, service.ErrLedgerDayNotFound):
		respondError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidSyncType),
		errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, service.ErrInvalidState):
		respondError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrNoAuthorizedShops):
		// 需要用户重新授权
		respondError(ctx, http.StatusUnprocessableEntity, err.Error())
	default:
		var apiErr *tiktok.UpstreamAPIError
		if errors.As(err, &apiErr) {
			respondError(ctx, http.StatusBadGateway, err.Error())
			return
		}
		respondError(ctx, http.StatusInternalServerError, err.Error())
	}
}

// ==================== 工具函数 ====================

func parseID(ctx *gin.Context, key string) int64 {
	id, err := strconv.ParseInt(ctx.Param(key), 10, 64)
	if err != nil || id <= 0 {
		respondError(ctx, http.StatusBadRequest, "无效的 ID")
		return 0
	}
	return id
}

// parseWindow 日期为闭区间 (UTC)，转换为左闭右开窗口
func parseWindow(startDate, endDate string, def tiktok.Window) (tiktok.Window, error) {
	if startDate == "" && endDate == "" {
		return def, nil
	}
	if startDate == "" || endDate == "" {
		return tiktok.Window{}, service.ErrInvalidWindow
	}
	start, err := time.ParseInLocation(model.DateLayout, startDate, time.UTC)
	if err != nil {
		return tiktok.Window{}, service.ErrInvalidWindow
	}
	end, err := time.ParseInLocation(model.DateLayout, endDate, time.UTC)
	if err != nil {
		return tiktok.Window{}, service.ErrInvalidWindow
	}
	w := tiktok.Window{Start: start, End: end.AddDate(0, 0, 1)}
	if !w.End.After(w.Start) {
		return tiktok.Window{}, service.ErrInvalidWindow
	}
	return w, nil
}

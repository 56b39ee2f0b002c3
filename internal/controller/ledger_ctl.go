package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"accelerator_sync_v1/internal/api/dto"
	"accelerator_sync_v1/internal/middleware"
	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/service"
)

// LedgerReader 账本查询 (service.LedgerService)
type LedgerReader interface {
	Days(ctx context.Context, userID int64, from, to string) ([]service.LedgerDay, error)
	SyncLog(ctx context.Context, userID int64, date string) (*model.SyncLog, error)
}

type LedgerController struct {
	svc LedgerReader
}

func NewLedgerController(svc LedgerReader) *LedgerController {
	return &LedgerController{svc: svc}
}

// List 日期区间内的每日账本
// @Summary 每日账本
// @Tags Ledger
// @Produce json
// @Param start_date query string true "开始日期 2025-01-01 (含)"
// @Param end_date query string true "结束日期 2025-01-31 (含)"
// @Success 200 {object} dto.LedgerListResp
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Router /api/v1/ledger [get]
func (c *LedgerController) List(ctx *gin.Context) {
	var q dto.LedgerQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		respondError(ctx, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	days, err := c.svc.Days(ctx.Request.Context(), middleware.GetUserID(ctx), q.StartDate, q.EndDate)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	resp := dto.LedgerListResp{Total: len(days), List: make([]dto.LedgerDayVO, 0, len(days))}
	for i := range days {
		resp.List = append(resp.List, toLedgerDayVO(&days[i]))
	}
	respondOK(ctx, "success", resp)
}

// SyncLog 某日预估与结算对照
// @Summary 对账日志
// @Tags Ledger
// @Produce json
// @Param date path string true "日期 2025-01-01"
// @Success 200 {object} dto.SyncLogVO
// @Failure 404 {object} map[string]interface{} "当天没有对账记录"
// @Router /api/v1/ledger/{date}/sync-log [get]
func (c *LedgerController) SyncLog(ctx *gin.Context) {
	log, err := c.svc.SyncLog(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.Param("date"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	respondOK(ctx, "success", dto.SyncLogVO{
		Date:                log.Date,
		EstimatedRevenue:    log.EstimatedRevenue,
		EstimatedFee:        log.EstimatedFee,
		EstimatedCommission: log.EstimatedCommission,
		SettledRevenue:      nullable(log.SettledRevenue),
		SettledFee:          nullable(log.SettledFee),
		SettledCommission:   nullable(log.SettledCommission),
		MatchPercent:        log.MatchPercent,
		SyncedAt:            log.SyncedAt,
	})
}

func toLedgerDayVO(d *service.LedgerDay) dto.LedgerDayVO {
	e := &d.Entry
	vo := dto.LedgerDayVO{
		Date:                e.Date,
		Platform:            e.Platform,
		GrossRevenue:        e.GrossRevenue,
		Refunds:             e.Refunds,
		OrderCount:          e.OrderCount,
		PlatformFee:         e.PlatformFee,
		AffiliateCommission: e.AffiliateCommission,
		MatchPercent:        e.MatchPercent,
		SyncedAt:            e.SyncedAt,
		PostageCost:         e.PostageCost,
		PickPackCost:        e.PickPackCost,
		AdSpend:             e.AdSpend,
		Notes:               e.Notes,
		Units:               make([]dto.LedgerUnitsVO, 0, len(d.Units)),
	}
	for _, u := range d.Units {
		vo.Units = append(vo.Units, dto.LedgerUnitsVO{LedgerProductID: u.LedgerProductID, Name: u.Name, Units: u.Units})
	}
	return vo
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

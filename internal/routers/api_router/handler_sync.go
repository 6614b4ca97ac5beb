package api_router

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sleepyyui/notallyxo-sync-service/internal/app"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/internal/middleware"
	pkgapp "github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"
	apperrors "github.com/sleepyyui/notallyxo-sync-service/pkg/errors"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/util"
	"go.uber.org/zap"
)

// SyncHandler sync API router handler
// SyncHandler 批量同步 API 路由处理器
type SyncHandler struct {
	*Handler
}

// NewSyncHandler 创建 SyncHandler 实例
func NewSyncHandler(a *app.App) *SyncHandler {
	return &SyncHandler{
		Handler: NewHandler(a),
	}
}

// Sync batch note synchronization
// @Summary Batch synchronization
// @Description 应用客户端批量变更、检测冲突并回传服务端变更。冲突的笔记不会被覆盖。
// @Tags Sync
// @Accept json
// @Produce json
// @Param changed_since query int false "Client baseline, unix millis"
// @Param params body dto.SyncRequest true "Sync Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.SyncResponse} "Success"
// @Router /api/v1/sync [post]
func (h *SyncHandler) Sync(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.SyncRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("SyncHandler.Sync.BindAndValid errs", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	// 基线优先取 query，其次取 body 的 lastSyncTimestamp
	since := params.LastSyncTimestamp
	if s := c.Query("changed_since"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			response.ToResponse(code.ErrorInvalidParams.WithDetails("changed_since must be an integer"))
			return
		}
		since = v
	}

	ctx := c.Request.Context()

	resp, err := h.App.SyncService.SyncNotes(ctx, pkgapp.GetUserID(c), since, params)
	if err != nil {
		h.logError(ctx, "SyncHandler.Sync", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	if !resp.Success {
		response.ToResponse(code.ErrorNoteSyncConflicts.WithData(resp))
		return
	}
	response.ToResponse(code.Success.WithData(resp))
}

// Status liveness probe
// @Summary Sync status probe
// @Description 返回服务状态、时间与版本。
// @Tags Sync
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.SyncStatusResponse} "Success"
// @Router /api/v1/sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	response.ToResponse(code.Success.WithData(&dto.SyncStatusResponse{
		Status:     "ok",
		ServerTime: util.NowMilli(),
		Version:    h.App.Version().Version,
	}))
}

// logError 记录错误日志，包含 Trace ID
func (h *SyncHandler) logError(ctx context.Context, method string, err error) {
	traceID := middleware.GetTraceID(ctx)
	h.App.Logger().Error(method,
		zap.Error(err),
		zap.String("traceId", traceID),
	)
}

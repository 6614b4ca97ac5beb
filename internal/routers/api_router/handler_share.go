package api_router

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sleepyyui/notallyxo-sync-service/internal/app"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/internal/middleware"
	pkgapp "github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"
	apperrors "github.com/sleepyyui/notallyxo-sync-service/pkg/errors"
	"go.uber.org/zap"
)

// ShareHandler share API router handler
// ShareHandler 分享 API 路由处理器
type ShareHandler struct {
	*Handler
}

// NewShareHandler 创建 ShareHandler 实例
func NewShareHandler(a *app.App) *ShareHandler {
	return &ShareHandler{
		Handler: NewHandler(a),
	}
}

// Share grant access to a specific user
// @Summary Share a note with a user
// @Description 把笔记直接授权给指定用户，仅 owner 可操作。
// @Tags Share
// @Accept json
// @Produce json
// @Param syncId path string true "Note sync id"
// @Param params body dto.ShareNoteRequest true "Share Parameters"
// @Success 200 {object} pkgapp.Res "Success"
// @Router /api/v1/notes/{syncId}/share [post]
func (h *ShareHandler) Share(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ShareNoteRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ShareHandler.Share.BindAndValid errs", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()

	if err := h.App.ShareService.ShareNote(ctx, pkgapp.GetUserID(c), c.Param("syncId"), params); err != nil {
		h.logError(ctx, "ShareHandler.Share", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success)
}

// CreateToken create a single-use sharing token
// @Summary Create a sharing token
// @Description 为笔记创建一次性分享令牌，参数走 query。
// @Tags Share
// @Produce json
// @Param syncId path string true "Note sync id"
// @Param access_level query string false "READ_ONLY or READ_WRITE"
// @Param expiry_time query int false "Expiration unix millis, 0 for default"
// @Success 200 {object} pkgapp.Res{data=dto.SharingTokenResponse} "Success"
// @Router /api/v1/notes/{syncId}/sharing-token [post]
func (h *ShareHandler) CreateToken(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.SharingTokenRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()))
		return
	}

	ctx := c.Request.Context()

	token, err := h.App.ShareService.CreateSharingToken(ctx, pkgapp.GetUserID(c), c.Param("syncId"), params)
	if err != nil {
		h.logError(ctx, "ShareHandler.CreateToken", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(token))
}

// Accept redeem a single-use sharing token
// @Summary Redeem a sharing token
// @Description 兑换一次性分享令牌，成功后返回被分享的笔记。令牌只能用一次。
// @Tags Share
// @Produce json
// @Param token query string true "Sharing token"
// @Success 200 {object} pkgapp.Res{data=dto.AcceptShareResponse} "Success"
// @Router /api/v1/shared/accept [post]
func (h *ShareHandler) Accept(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	token := c.Query("token")
	if token == "" {
		token = c.PostForm("token")
	}
	if token == "" {
		response.ToResponse(code.ErrorInvalidParams.WithDetails("token is required"))
		return
	}

	ctx := c.Request.Context()

	resp, err := h.App.ShareService.AcceptSharedNote(ctx, pkgapp.GetUserID(c), token)
	if err != nil {
		h.logError(ctx, "ShareHandler.Accept", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(resp))
}

// logError 记录错误日志，包含 Trace ID
func (h *ShareHandler) logError(ctx context.Context, method string, err error) {
	traceID := middleware.GetTraceID(ctx)
	h.App.Logger().Error(method,
		zap.Error(err),
		zap.String("traceId", traceID),
	)
}

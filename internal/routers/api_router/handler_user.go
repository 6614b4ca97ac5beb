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

// UserHandler user API router handler
// UserHandler 用户 API 路由处理器
// Uses App Container to inject dependencies, supports unified error handling
// 使用 App Container 注入依赖，支持统一错误处理
type UserHandler struct {
	*Handler
}

// NewUserHandler creates UserHandler instance
// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(a *app.App) *UserHandler {
	return &UserHandler{
		Handler: NewHandler(a),
	}
}

// AuthToken device credential authentication
// @Summary Device credential authentication
// @Description Exchange a device user id and auth key for an access token. First-seen devices are registered when registration is enabled.
// @Description 用设备 userId 和 authKey 换取访问令牌，首次出现的设备在开启注册时自动注册。
// @Tags User
// @Accept json
// @Produce json
// @Param params body dto.AuthTokenRequest true "Auth Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.AuthTokenResponse} "Success"
// @Failure 400 {object} pkgapp.Res "Invalid Parameters / Auth Failed"
// @Router /api/v1/auth/token [post]
func (h *UserHandler) AuthToken(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.AuthTokenRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("UserHandler.AuthToken.BindAndValid errs", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()

	authDTO, err := h.App.UserService.AuthByToken(ctx, params, pkgapp.GetRequestIP(c))
	if err != nil {
		h.logError(ctx, "UserHandler.AuthToken", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(authDTO))
}

// Profile fetch the authenticated user's profile
// @Summary User profile
// @Description 获取当前认证用户的资料。
// @Tags User
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.UserProfileResponse} "Success"
// @Failure 401 {object} pkgapp.Res "Unauthorized"
// @Router /api/v1/users/profile [get]
func (h *UserHandler) Profile(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	ctx := c.Request.Context()

	profile, err := h.App.UserService.Profile(ctx, pkgapp.GetUID(c))
	if err != nil {
		h.logError(ctx, "UserHandler.Profile", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(profile))
}

// UpdateProfile update the authenticated user's profile
// @Summary Update user profile
// @Description 更新当前认证用户的资料。
// @Tags User
// @Accept json
// @Produce json
// @Param params body dto.UserProfileUpdateRequest true "Profile Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.UserProfileResponse} "Success"
// @Router /api/v1/users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.UserProfileUpdateRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("UserHandler.UpdateProfile.BindAndValid errs", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()

	profile, err := h.App.UserService.UpdateProfile(ctx, pkgapp.GetUID(c), params)
	if err != nil {
		h.logError(ctx, "UserHandler.UpdateProfile", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(profile))
}

// logError records error log, including Trace ID
// logError 记录错误日志，包含 Trace ID
func (h *UserHandler) logError(ctx context.Context, method string, err error) {
	traceID := middleware.GetTraceID(ctx)
	h.App.Logger().Error(method,
		zap.Error(err),
		zap.String("traceId", traceID),
	)
}

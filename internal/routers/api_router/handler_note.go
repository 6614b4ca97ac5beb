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

// NoteHandler note API router handler
// NoteHandler 笔记 API 路由处理器
type NoteHandler struct {
	*Handler
}

// NewNoteHandler 创建 NoteHandler 实例
func NewNoteHandler(a *app.App) *NoteHandler {
	return &NoteHandler{
		Handler: NewHandler(a),
	}
}

// Get single note fetch
// @Summary Fetch a note
// @Description 获取单条笔记，要求 owner 或被共享。
// @Tags Note
// @Produce json
// @Param syncId path string true "Note sync id"
// @Success 200 {object} pkgapp.Res{data=dto.NoteDto} "Success"
// @Failure 400 {object} pkgapp.Res "Not Found / Access Denied"
// @Router /api/v1/notes/{syncId} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	ctx := c.Request.Context()

	note, err := h.App.NoteService.Get(ctx, pkgapp.GetUserID(c), c.Param("syncId"))
	if err != nil {
		h.logError(ctx, "NoteHandler.Get", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(note))
}

// Upsert single note create or overwrite
// @Summary Upsert a note
// @Description 创建或覆盖单条笔记，写入要求 owner 或 READ_WRITE 授权。
// @Tags Note
// @Accept json
// @Produce json
// @Param syncId path string true "Note sync id"
// @Param params body dto.NoteUpsertRequest true "Note Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.NoteDto} "Success"
// @Router /api/v1/notes/{syncId} [put]
func (h *NoteHandler) Upsert(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteUpsertRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("NoteHandler.Upsert.BindAndValid errs", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()

	note, err := h.App.NoteService.Upsert(ctx, pkgapp.GetUserID(c), c.Param("syncId"), params)
	if err != nil {
		h.logError(ctx, "NoteHandler.Upsert", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(note))
}

// Delete single note removal
// @Summary Delete a note
// @Description 删除单条笔记，仅 owner 可删。
// @Tags Note
// @Produce json
// @Param syncId path string true "Note sync id"
// @Success 200 {object} pkgapp.Res "Success"
// @Router /api/v1/notes/{syncId} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	ctx := c.Request.Context()

	if err := h.App.NoteService.Delete(ctx, pkgapp.GetUserID(c), c.Param("syncId")); err != nil {
		h.logError(ctx, "NoteHandler.Delete", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success)
}

// List visible notes changed after a timestamp
// @Summary List notes
// @Description 获取用户可见且在 since 之后修改的笔记。
// @Tags Note
// @Produce json
// @Param since query int false "Unix millis baseline, 0 for all"
// @Param page query int false "Page number, starts at 1"
// @Param pageSize query int false "Page size, clamped to configured maximum"
// @Success 200 {object} pkgapp.Res{data=[]dto.NoteDto} "Success"
// @Router /api/v1/notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteListRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()))
		return
	}

	ctx := c.Request.Context()

	pageSize := pkgapp.GetPageSize(c)
	offset := pkgapp.GetPageOffset(pkgapp.GetPage(c), pageSize)

	notes, total, err := h.App.NoteService.List(ctx, pkgapp.GetUserID(c), params.Since, pageSize, offset)
	if err != nil {
		h.logError(ctx, "NoteHandler.List", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponseList(code.Success, notes, total)
}

// logError 记录错误日志，包含 Trace ID
func (h *NoteHandler) logError(ctx context.Context, method string, err error) {
	traceID := middleware.GetTraceID(ctx)
	h.App.Logger().Error(method,
		zap.Error(err),
		zap.String("traceId", traceID),
	)
}

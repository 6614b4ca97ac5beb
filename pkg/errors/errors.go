// Package errors 定义对外错误响应结构
// 服务层返回 *code.Code 错误,路由层通过 ErrorResponse 统一转换为 JSON
package errors

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sleepyyui/notallyxo-sync-service/internal/middleware"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"
)

// AppError 携带错误码与追踪信息的响应体
type AppError struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Details   []string  `json:"details,omitempty"`
	TraceID   string    `json:"traceId,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorResponse 将任意错误写成统一 JSON 响应并附带当前请求的 TraceID
// 识别 *AppError 和 *code.Code,其余按内部错误兜底
func ErrorResponse(c *gin.Context, err error) {
	traceID := middleware.GetTraceIDFromGin(c)

	var appErr *AppError
	if errors.As(err, &appErr) {
		appErr.TraceID = traceID
		c.JSON(http.StatusOK, appErr)
		return
	}

	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		c.JSON(http.StatusOK, &AppError{
			Code:      codeErr.Code(),
			Message:   codeErr.Msg(),
			Details:   codeErr.Details(),
			TraceID:   traceID,
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, &AppError{
		Code:      code.Fail.Code(),
		Message:   "Internal Server Error",
		TraceID:   traceID,
		Timestamp: time.Now(),
	})
}

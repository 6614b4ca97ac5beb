package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithLogger 捕获 handler panic,记录现场后返回统一的内部错误响应
func RecoveryWithLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				msg := fmt.Sprintf("%v", r)
				logger.Error("recovered from panic",
					zap.Int("status", c.Writer.Status()),
					zap.String("router", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("query", c.Request.URL.RawQuery),
					zap.String("ip", c.ClientIP()),
					zap.String("panic", msg),
					zap.String("stack", string(debug.Stack())),
				)
				app.NewResponse(c).ToResponse(code.ErrorServerInternal.WithDetails(msg))
				c.Abort()
			}
		}()

		c.Next()
	}
}

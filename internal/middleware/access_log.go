package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLogWithLogger 记录每个请求的访问日志
// 路径、状态码、耗时与客户端信息都落到结构化字段里
func AccessLogWithLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fullURL := path
		if raw := c.Request.URL.RawQuery; raw != "" {
			fullURL = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("url", fullURL),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("time-cost", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		logger.Info(path, fields...)
	}
}

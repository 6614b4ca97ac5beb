package middleware

import (
	"github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// NoFound 未匹配路由统一返回接口不存在
func NoFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		app.NewResponse(c).ToResponse(code.ErrorNotFoundAPI)
		c.Abort()
	}
}

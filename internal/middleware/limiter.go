package middleware

import (
	"github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/limiter"

	"github.com/gin-gonic/gin"
)

// RateLimiter 按路由前缀做令牌桶限流
func RateLimiter(l limiter.Face) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bucket, ok := l.GetBucket(l.Key(c)); ok {
			if bucket.TakeAvailable(1) == 0 {
				app.NewResponse(c).ToResponse(code.ErrorTooManyRequests)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

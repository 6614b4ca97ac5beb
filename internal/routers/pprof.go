package routers

import (
	"net/http"
	"net/http/pprof"

	"github.com/sleepyyui/notallyxo-sync-service/internal/middleware"
	"github.com/sleepyyui/notallyxo-sync-service/internal/routers/api_router"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewPrivateRouterWithLogger builds the private diagnostics router.
// It only listens on the private port and is never exposed to clients.
// NewPrivateRouterWithLogger 构建私有诊断路由，仅监听私有端口，不对客户端开放
func NewPrivateRouterWithLogger(runMode string, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	if runMode == "debug" {
		r.Use(gin.Recovery())
	} else {
		r.Use(middleware.RecoveryWithLogger(logger))
	}

	// runtime counters and prometheus scrape endpoint
	// 运行时计数与 prometheus 抓取端点
	r.GET("/debug/vars", api_router.Expvar)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// profiling routes stay debug-only
	// 性能分析路由仅在 debug 模式开启
	if runMode == "debug" {
		p := r.Group("/pprof")
		p.GET("/", wrapPprof(pprof.Index))
		p.GET("/cmdline", wrapPprof(pprof.Cmdline))
		p.GET("/profile", wrapPprof(pprof.Profile))
		p.GET("/symbol", wrapPprof(pprof.Symbol))
		p.POST("/symbol", wrapPprof(pprof.Symbol))
		p.GET("/trace", wrapPprof(pprof.Trace))
		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			p.GET("/"+name, wrapPprof(pprof.Handler(name).ServeHTTP))
		}
	}

	return r
}

func wrapPprof(h http.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

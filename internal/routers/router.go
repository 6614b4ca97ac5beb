package routers

import (
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/app"
	"github.com/sleepyyui/notallyxo-sync-service/internal/middleware"
	"github.com/sleepyyui/notallyxo-sync-service/internal/routers/api_router"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/limiter"

	ut "github.com/go-playground/universal-translator"
	"github.com/gin-gonic/gin"
)

// auth/token 接口限流
var methodLimiters = limiter.NewMethodLimiter().AddBuckets(
	limiter.BucketRule{
		Key:          "/api/v1/auth",
		FillInterval: time.Second,
		Capacity:     10,
		Quantum:      10,
	},
)

// NewRouter 创建公开 HTTP 路由
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {

	cfg := appContainer.Config()

	r := gin.New()

	// WebSocket 推送通道，认证在握手阶段完成
	r.GET("/ws/updates", appContainer.Hub.Run())

	api := r.Group("/api/v1")
	{
		api.Use(middleware.AppInfoWithConfig(app.Name, appContainer.Version().Version))
		api.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header))
		api.Use(middleware.RateLimiter(methodLimiters))
		api.Use(middleware.ContextTimeout(time.Duration(cfg.App.DefaultContextTimeout) * time.Second))
		api.Use(middleware.Cors())
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(appContainer.Logger()))
		api.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

		// 创建 Handlers（注入 App Container）
		userHandler := api_router.NewUserHandler(appContainer)
		noteHandler := api_router.NewNoteHandler(appContainer)
		syncHandler := api_router.NewSyncHandler(appContainer)
		shareHandler := api_router.NewShareHandler(appContainer)
		healthHandler := api_router.NewHealthHandler(appContainer)
		versionHandler := api_router.NewVersionHandler(appContainer)

		// 无需认证
		api.POST("/auth/token", userHandler.AuthToken)
		api.GET("/sync/status", syncHandler.Status)
		api.GET("/health", healthHandler.Check)
		api.GET("/version", versionHandler.ServerVersion)

		// 需要认证
		auth := api.Group("", middleware.UserAuthTokenWithConfig(cfg.Security.AuthTokenKey))
		{
			auth.GET("/users/profile", userHandler.Profile)
			auth.PUT("/users/profile", userHandler.UpdateProfile)

			auth.POST("/sync", syncHandler.Sync)

			auth.GET("/notes", noteHandler.List)
			auth.GET("/notes/:syncId", noteHandler.Get)
			auth.PUT("/notes/:syncId", noteHandler.Upsert)
			auth.DELETE("/notes/:syncId", noteHandler.Delete)

			auth.POST("/notes/:syncId/share", shareHandler.Share)
			auth.POST("/notes/:syncId/sharing-token", shareHandler.CreateToken)
			auth.POST("/shared/accept", shareHandler.Accept)
		}
	}

	r.NoRoute(middleware.NoFound())

	return r
}

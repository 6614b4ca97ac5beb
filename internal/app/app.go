// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/dao"
	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/hub"
	"github.com/sleepyyui/notallyxo-sync-service/internal/service"
	pkgapp "github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/workerpool"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao

	// 并发控制组件
	workerPool *workerpool.Pool

	// Repository 层
	NoteRepo  domain.NoteRepository
	UserRepo  domain.UserRepository
	ShareRepo domain.ShareRepository

	// Service 层
	UserService  service.UserService
	NoteService  service.NoteService
	SyncService  service.SyncService
	ShareService service.ShareService

	// 基础设施组件
	TokenManager pkgapp.TokenManager
	Hub          *hub.Hub

	// StartTime 服务启动时间，用于健康检查上报运行时长
	StartTime time.Time
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
// db: 数据库连接（必须）
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	a := &App{
		config:    cfg,
		logger:    logger,
		DB:        db,
		StartTime: time.Now(),
	}

	// 初始化 Worker Pool
	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, logger)

	// 初始化 DAO
	a.Dao = dao.New(db, logger)

	// 初始化 TokenManager
	a.TokenManager = pkgapp.NewTokenManager(pkgapp.TokenConfig{
		SecretKey: cfg.Security.AuthTokenKey,
		Issuer:    "notallyxo-sync-service",
		Expiry:    cfg.GetTokenExpiry(),
	})

	// 初始化 Repository 层
	a.NoteRepo = dao.NewNoteRepository(a.Dao)
	a.UserRepo = dao.NewUserRepository(a.Dao)
	a.ShareRepo = dao.NewShareRepository(a.Dao)

	// 初始化 WebSocket Hub
	a.Hub = hub.NewHub(a.TokenManager, a.workerPool, logger)

	// 创建 ServiceConfig（从 AppConfig 提取 Service 层需要的配置）
	svcConfig := &service.ServiceConfig{
		User: service.UserServiceConfig{
			RegisterIsEnable: cfg.User.RegisterIsEnable,
			TokenExpiry:      cfg.Security.TokenExpiry,
		},
		Share: service.ShareServiceConfig{
			DefaultTokenExpiry: cfg.Share.DefaultTokenExpiry,
			UsedTokenRetention: cfg.Share.UsedTokenRetention,
		},
	}

	// 初始化 Service 层（依赖注入）
	a.UserService = service.NewUserService(a.UserRepo, a.TokenManager, logger, svcConfig)
	a.NoteService = service.NewNoteService(a.NoteRepo, a.ShareRepo, a.Hub, logger)
	a.SyncService = service.NewSyncService(a.NoteRepo, a.ShareRepo, a.Hub, logger)
	a.ShareService = service.NewShareService(a.NoteRepo, a.UserRepo, a.ShareRepo, a.Hub, logger, svcConfig)

	logger.Info("App container initialized successfully",
		zap.Int("workerPoolMaxWorkers", wpConfig.MaxWorkers))

	return a, nil
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	if a.workerPool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.workerPool.Shutdown(ctx)
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.logger.Info("Database connection closed")
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// SubmitTask 提交任务到 Worker Pool
// 池已满或已关闭时返回错误
func (a *App) SubmitTask(ctx context.Context, task func(context.Context) error) error {
	return a.workerPool.Submit(ctx, task)
}

// SubmitTaskAsync 异步提交任务到 Worker Pool（不等待结果）
func (a *App) SubmitTaskAsync(ctx context.Context, task func(context.Context) error) error {
	return a.workerPool.SubmitAsync(ctx, task)
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// GetAuthTokenKey 获取 Token 密钥
func (a *App) GetAuthTokenKey() string {
	return a.config.Security.AuthTokenKey
}

// IsProductionMode 是否为生产模式
// 根据日志配置中的 Production 字段判断
func (a *App) IsProductionMode() bool {
	return a.config.Log.Production
}

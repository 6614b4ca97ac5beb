package task

import (
	"context"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/app"

	"go.uber.org/zap"
)

func init() {
	Register(NewTokenCleanupTask)
}

// TokenCleanupTask 分享令牌清理任务
// 定期删除已过期和长期处于已使用状态的分享令牌
type TokenCleanupTask struct {
	app      *app.App
	interval time.Duration
}

// Name 返回任务名称
func (t *TokenCleanupTask) Name() string {
	return "SharingTokenCleanup"
}

// LoopInterval 返回执行间隔
func (t *TokenCleanupTask) LoopInterval() time.Duration {
	return t.interval
}

// IsStartupRun 是否立即执行一次
func (t *TokenCleanupTask) IsStartupRun() bool {
	return true
}

// Run 执行清理任务
func (t *TokenCleanupTask) Run(ctx context.Context) error {
	removed, err := t.app.ShareService.CleanupTokens(ctx)
	if err != nil {
		t.app.Logger().Error("task log",
			zap.String("task", t.Name()),
			zap.String("msg", "failed"),
			zap.Error(err))
		return err
	}

	if removed > 0 {
		t.app.Logger().Info("task log",
			zap.String("task", t.Name()),
			zap.String("type", "loopRun"),
			zap.String("msg", "success"),
			zap.Int64("removed", removed))
	}

	return nil
}

// NewTokenCleanupTask 创建分享令牌清理任务
func NewTokenCleanupTask(appContainer *app.App) (Task, error) {
	interval := appContainer.Config().GetShareCleanupInterval()
	if interval <= 0 {
		// 间隔未配置时禁用任务
		return nil, nil
	}

	return &TokenCleanupTask{
		app:      appContainer,
		interval: interval,
	}, nil
}

package task

import (
	"context"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/app"

	"go.uber.org/zap"
)

func init() {
	Register(NewHubStatsTask)
}

// HubStatsTask 定期记录 WebSocket 连接统计
type HubStatsTask struct {
	app *app.App
}

// Name 返回任务名称
func (t *HubStatsTask) Name() string {
	return "HubStats"
}

// LoopInterval 返回执行间隔
func (t *HubStatsTask) LoopInterval() time.Duration {
	return 5 * time.Minute
}

// IsStartupRun 是否立即执行一次
func (t *HubStatsTask) IsStartupRun() bool {
	return false
}

// Run 记录当前连接数
func (t *HubStatsTask) Run(ctx context.Context) error {
	if t.app.Hub == nil {
		return nil
	}

	t.app.Logger().Info("task log",
		zap.String("task", t.Name()),
		zap.Int("connections", t.app.Hub.Count()),
		zap.Int("users", t.app.Hub.UserCount()))

	return nil
}

// NewHubStatsTask 创建连接统计任务
func NewHubStatsTask(appContainer *app.App) (Task, error) {
	return &HubStatsTask{app: appContainer}, nil
}

package task

import (
	"sync"

	"github.com/sleepyyui/notallyxo-sync-service/internal/app"
)

// TaskFactory 从 App 容器创建任务实例
// 返回 (nil, nil) 表示任务被配置禁用
type TaskFactory func(a *app.App) (Task, error)

var registry struct {
	mu        sync.Mutex
	factories []TaskFactory
}

// Register 注册任务工厂,由各任务文件的 init() 调用
func Register(f TaskFactory) {
	registry.mu.Lock()
	registry.factories = append(registry.factories, f)
	registry.mu.Unlock()
}

// GetFactories 返回已注册工厂的快照
func GetFactories() []TaskFactory {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	out := make([]TaskFactory, len(registry.factories))
	copy(out, registry.factories)
	return out
}

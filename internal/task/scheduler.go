package task

import (
	"context"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/pkg/safe_close"
	"go.uber.org/zap"
)

// Task 后台任务接口
// 任务由调度器按固定间隔驱动,关停时通过 ctx 取消
type Task interface {
	Name() string
	Run(ctx context.Context) error
	LoopInterval() time.Duration // <=0 表示只在启动时执行
	IsStartupRun() bool
}

// Scheduler 按任务自身声明的间隔循环调度任务
type Scheduler struct {
	logger *zap.Logger
	tasks  []Task
	sc     *safe_close.SafeClose
}

func NewScheduler(logger *zap.Logger, sc *safe_close.SafeClose) *Scheduler {
	return &Scheduler{logger: logger, sc: sc}
}

func (s *Scheduler) AddTask(t Task) {
	s.tasks = append(s.tasks, t)
}

// Start 为每个任务挂接一个受 safe_close 管理的循环协程
func (s *Scheduler) Start() {
	if len(s.tasks) == 0 {
		s.logger.Info("no background tasks registered")
		return
	}

	s.logger.Info("background tasks starting", zap.Int("count", len(s.tasks)))

	for _, t := range s.tasks {
		s.loop(t)
	}
}

func (s *Scheduler) loop(t Task) {
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()

		// ctx 随关停信号取消,让任务内部的数据库调用及时退出
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-closeSignal
			cancel()
		}()
		defer cancel()

		if t.IsStartupRun() {
			go s.runGuarded(ctx, t, "startupRun")
		}

		interval := t.LoopInterval()
		if interval <= 0 {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runGuarded(ctx, t, "loopRun")
			case <-closeSignal:
				s.logger.Info("task stopped", zap.String("name", t.Name()))
				return
			}
		}
	})
}

// runGuarded 执行一次任务,panic 只打日志不拖垮调度循环
func (s *Scheduler) runGuarded(ctx context.Context, t Task, kind string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panic",
				zap.String("name", t.Name()),
				zap.String("type", kind),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	s.logger.Info("task running", zap.String("name", t.Name()), zap.String("type", kind))

	if err := t.Run(ctx); err != nil {
		s.logger.Error("task failed",
			zap.String("name", t.Name()),
			zap.String("type", kind),
			zap.Error(err))
	}
}

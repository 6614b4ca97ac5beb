// Package scheduler 把同步编排器映射到周期性后台执行
// Package scheduler runs the sync orchestrator periodically under
// declarative network/battery constraints, with transient-error retry.
package scheduler

import (
	"context"
	"sync"
	"time"

	clientapi "github.com/sleepyyui/notallyxo-sync-service/internal/client/api"
	clientsync "github.com/sleepyyui/notallyxo-sync-service/internal/client/sync"

	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	// DefaultInterval 默认同步周期
	DefaultInterval = 60 * time.Minute
	// MinInterval 允许的最小同步周期
	MinInterval = 15 * time.Minute
	// maxRetries 瞬态错误最大重试次数
	maxRetries = 3
)

// NetworkType 网络类型约束
type NetworkType string

const (
	NetworkAny  NetworkType = "any"
	NetworkWifi NetworkType = "wifi"
)

// Constraints 声明式执行约束
type Constraints struct {
	NetworkType           NetworkType
	RequiresBatteryNotLow bool
}

// ConstraintChecker 在每次执行前检查约束是否满足
type ConstraintChecker interface {
	Satisfied(c Constraints) bool
}

// ExistingWorkPolicy 重复调度策略
type ExistingWorkPolicy string

const (
	// PolicyReplace 取消已有周期任务,按新参数重建
	PolicyReplace ExistingWorkPolicy = "REPLACE"
	// PolicyKeep 已有周期任务保持不变
	PolicyKeep ExistingWorkPolicy = "KEEP"
)

// Scheduler 后台同步调度器
type Scheduler struct {
	orchestrator *clientsync.Orchestrator
	checker      ConstraintChecker
	logger       *zap.Logger

	mu          sync.Mutex
	cron        *cron.Cron
	entryID     cron.EntryID
	scheduled   bool
	constraints Constraints
}

func New(o *clientsync.Orchestrator, checker ConstraintChecker, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		orchestrator: o,
		checker:      checker,
		logger:       log,
		cron:         cron.New(),
	}
}

// Start 启动调度循环
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度,等待在途任务结束
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// SchedulePeriodic 注册周期同步
// 周期低于最小值时取最小值;policy 决定已有任务被替换还是保留
func (s *Scheduler) SchedulePeriodic(interval time.Duration, c Constraints, policy ExistingWorkPolicy) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval < MinInterval {
		interval = MinInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduled {
		if policy == PolicyKeep {
			return nil
		}
		s.cron.Remove(s.entryID)
	}

	s.constraints = c
	id, err := s.cron.AddFunc("@every "+interval.String(), func() {
		s.runOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.entryID = id
	s.scheduled = true
	return nil
}

// SyncNow 一次性提交,绕过周期但仍受约束与重试策略管理
func (s *Scheduler) SyncNow(ctx context.Context) *clientsync.Result {
	return s.runOnce(ctx)
}

// runOnce 约束检查后执行一轮,瞬态失败按斐波那契退避重试
func (s *Scheduler) runOnce(ctx context.Context) *clientsync.Result {
	s.mu.Lock()
	constraints := s.constraints
	s.mu.Unlock()

	if s.checker != nil && !s.checker.Satisfied(constraints) {
		s.logger.Info("sync skipped, constraints not satisfied")
		return &clientsync.Result{Status: clientsync.StatusIdle, Err: clientsync.ErrNetworkUnavailable}
	}

	var res *clientsync.Result
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res = s.orchestrator.SyncNow(ctx)
		if res.Err == nil {
			return nil
		}
		// 只重试网络类瞬态错误,认证与配置错误直接终止
		if clientapi.IsTransient(res.Err) {
			return retry.RetryableError(res.Err)
		}
		return res.Err
	})
	if err != nil && res == nil {
		res = &clientsync.Result{Status: clientsync.StatusFailed, Err: err}
	}
	return res
}

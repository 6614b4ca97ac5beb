// Package workerpool 提供有界并发的任务池
// 推送风暴时用队列吸收突发,而不是为每个会话起新 goroutine
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrPoolFull 任务队列已满
	ErrPoolFull = errors.New("workerpool: queue is full")
	// ErrPoolClosed 任务池已关闭
	ErrPoolClosed = errors.New("workerpool: closed")
)

// Config 任务池配置
type Config struct {
	// MaxWorkers 并发 worker 数上限
	MaxWorkers int
	// QueueSize 等待队列长度
	QueueSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxWorkers: 100,
		QueueSize:  1000,
	}
}

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Pool 有界任务池
type Pool struct {
	config Config
	logger *zap.Logger

	jobs     chan job
	workerWg sync.WaitGroup
	active   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// New 创建任务池并立即启动全部 worker
// cfg 为 nil 或字段非法时回落到默认值
func New(cfg *Config, logger *zap.Logger) *Pool {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.MaxWorkers > 0 {
			c.MaxWorkers = cfg.MaxWorkers
		}
		if cfg.QueueSize > 0 {
			c.QueueSize = cfg.QueueSize
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config: c,
		logger: logger,
		jobs:   make(chan job, c.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < c.MaxWorkers; i++ {
		p.workerWg.Add(1)
		go p.worker()
	}

	logger.Info("worker pool started",
		zap.Int("maxWorkers", c.MaxWorkers),
		zap.Int("queueSize", c.QueueSize))

	return p
}

func (p *Pool) worker() {
	defer p.workerWg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(j)
		}
	}
}

func (p *Pool) run(j job) {
	p.active.Add(1)
	defer p.active.Add(-1)

	var err error
	select {
	case <-j.ctx.Done():
		err = j.ctx.Err()
	default:
		err = j.fn(j.ctx)
	}

	if j.done != nil {
		select {
		case j.done <- err:
		default:
		}
	}
}

// Submit 提交任务并等待其完成
// 队列满时立即返回 ErrPoolFull,不阻塞调用方
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) error {
	if p.isClosed() {
		return ErrPoolClosed
	}

	done := make(chan error, 1)
	select {
	case p.jobs <- job{ctx: ctx, fn: fn, done: done}:
	default:
		return ErrPoolFull
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// SubmitAsync 提交任务但不等待结果
func (p *Pool) SubmitAsync(ctx context.Context, fn func(context.Context) error) error {
	if p.isClosed() {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job{ctx: ctx, fn: fn}:
		return nil
	default:
		return ErrPoolFull
	}
}

// ActiveCount 当前正在执行的任务数
func (p *Pool) ActiveCount() int64 {
	return p.active.Load()
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Shutdown 停止接收新任务并等待存量任务完成
// ctx 到期后取消仍在执行的任务
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.logger.Info("worker pool shutting down",
		zap.Int64("active", p.active.Load()),
		zap.Int("queued", len(p.jobs)))

	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.workerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("worker pool shutdown timeout, cancelling remaining tasks")
		return ctx.Err()
	}
}

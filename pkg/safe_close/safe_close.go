// Package safe_close 提供优雅关闭协调器
// Package safe_close provides a graceful shutdown coordinator.
package safe_close

import (
	"sync"
)

// SafeClose 协调多个后台组件的关闭流程
// 每个组件通过 Attach 注册自己的关闭逻辑，收到关闭信号后执行清理并调用 done
// SafeClose coordinates the shutdown of multiple background components.
// Each component registers its shutdown logic via Attach, performs cleanup
// after the close signal fires and then calls done.
type SafeClose struct {
	mu          sync.Mutex
	closeSignal chan struct{}
	closed      bool
	err         error
	wg          sync.WaitGroup
}

// NewSafeClose 创建 SafeClose 实例
func NewSafeClose() *SafeClose {
	return &SafeClose{
		closeSignal: make(chan struct{}),
	}
}

// Attach 注册一个关闭处理器
// f 在独立的 goroutine 中运行，必须在完成清理后调用 done
// Attach registers a shutdown handler. f runs in its own goroutine and must
// call done once its cleanup has finished.
func (s *SafeClose) Attach(f func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	done := func() {
		s.wg.Done()
	}
	go f(done, s.closeSignal)
}

// SendCloseSignal 发送关闭信号
// 第一个非 nil 错误会被记录并由 WaitClosed 返回，重复调用无效
// SendCloseSignal fires the close signal. The first non-nil error is kept
// and returned by WaitClosed; subsequent calls are no-ops.
func (s *SafeClose) SendCloseSignal(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.closeSignal)
}

// CloseSignal 返回关闭信号通道，供需要 select 的调用方使用
func (s *SafeClose) CloseSignal() <-chan struct{} {
	return s.closeSignal
}

// WaitClosed 阻塞直到所有已注册的处理器完成，返回触发关闭的错误
// WaitClosed blocks until every attached handler has finished and returns
// the error that triggered the shutdown, if any.
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

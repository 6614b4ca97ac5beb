// Package observable 提供带当前值的订阅发布原语
// Package observable provides a current-value publish/subscribe primitive.
// A new subscriber immediately receives the latest published value.
package observable

import (
	"sync"
)

// Value 持有一个当前值，变更时通知所有订阅者
// 订阅通道带缓冲，慢订阅者只丢弃中间值，最新值总会送达
type Value[T any] struct {
	mu      sync.Mutex
	current T
	set     bool
	subs    map[int]chan T
	nextID  int
}

// NewValue 创建 Value，初始值为 initial
func NewValue[T any](initial T) *Value[T] {
	v := &Value[T]{
		subs: make(map[int]chan T),
	}
	v.current = initial
	v.set = true
	return v
}

// Get 返回当前值
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set 更新当前值并通知所有订阅者
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.current = val
	v.set = true
	chs := make([]chan T, 0, len(v.subs))
	for _, ch := range v.subs {
		chs = append(chs, ch)
	}
	v.mu.Unlock()

	for _, ch := range chs {
		// 订阅者未及时消费时用最新值替换积压值
		select {
		case ch <- val:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- val:
			default:
			}
		}
	}
}

// Subscribe 订阅变更，立即收到当前值
// 返回接收通道和取消函数，取消后通道被关闭
// Subscribe registers a subscriber. The current value is delivered
// immediately. The returned cancel func closes the channel.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	ch := make(chan T, 1)
	v.subs[id] = ch
	if v.set {
		ch <- v.current
	}
	v.mu.Unlock()

	cancel := func() {
		v.mu.Lock()
		if sub, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(sub)
		}
		v.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount 返回当前订阅者数量
func (v *Value[T]) SubscriberCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

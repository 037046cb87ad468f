package observer

import (
	"context"
	"sync"
)

// LocalBus 单进程内的推送实现
type LocalBus struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan Event
	next int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]chan Event)}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.RoomID] {
		select {
		case ch <- ev:
		default:
			// 订阅方太慢就丢弃，下一次事件会带上更新的版本
		}
	}
	return nil
}

func (b *LocalBus) Watch(ctx context.Context, roomID string, fn func(Event)) error {
	ch := make(chan Event, 16)
	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[int]chan Event)
	}
	b.subs[roomID][id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs[roomID], id)
		if len(b.subs[roomID]) == 0 {
			delete(b.subs, roomID)
		}
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-ch:
			fn(ev)
		}
	}
}

// Subscribers 当前订阅数，测试用
func (b *LocalBus) Subscribers(roomID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[roomID])
}

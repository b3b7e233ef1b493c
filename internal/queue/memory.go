package queue

import (
	"context"
	"sync"

	"github.com/flashmart/seckill/internal/domain"
)

// MemoryChannel is a fixed-capacity in-process queue. Tasks do not survive
// a crash, and a reservation whose submit fails is orphaned in the shared
// store; callers log that loudly. Use a durable backend in production.
type MemoryChannel struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan domain.OrderTask
}

func NewMemoryChannel(capacity int) *MemoryChannel {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryChannel{tasks: make(chan domain.OrderTask, capacity)}
}

func (m *MemoryChannel) Submit(_ context.Context, task domain.OrderTask) error {
	// The read lock excludes Close, so the channel cannot be closed under
	// the send below.
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case m.tasks <- task:
		return nil
	default:
		return domain.ErrChannelFull
	}
}

func (m *MemoryChannel) Consume(ctx context.Context) (Delivery, error) {
	select {
	case task, ok := <-m.tasks:
		if !ok {
			return Delivery{}, ErrClosed
		}
		return Delivery{Task: task, Ack: nopAck}, nil
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

func (m *MemoryChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.tasks)
	}
	return nil
}

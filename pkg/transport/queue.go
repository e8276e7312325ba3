package transport

import (
	"sync"

	"github.com/jet-ipc/jet-go/pkg/wire"
)

// notificationQueue is an unbounded FIFO between the read loop and the
// notification worker. push never blocks.
type notificationQueue struct {
	mu     sync.Mutex
	items  []*wire.Notification
	signal chan struct{}
}

func newNotificationQueue() *notificationQueue {
	return &notificationQueue{signal: make(chan struct{}, 1)}
}

func (q *notificationQueue) push(n *wire.Notification) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// drain removes and returns everything queued so far.
func (q *notificationQueue) drain() []*wire.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *notificationQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

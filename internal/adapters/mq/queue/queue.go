// Package queue buffers outbound duel announcements between the engine
// and the delivery workers.
//
// Announcements are best-effort: a full or closed queue drops the
// message rather than blocking duel state transitions.
package queue

import (
	"context"
	"sync"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultBufferSize    = 1024
)

// Event is the payload type flowing through the queue.
type Event = model.Announcement

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an announcement to the queue.
	// Returns false if it was dropped (queue full or closed).
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel receiving announcements as they arrive.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued announcements.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events     chan Event
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	if q.bufferSize < q.capacity {
		q.bufferSize = q.capacity
	}
	q.events = make(chan Event, q.bufferSize)

	metrics.UpdateAnnounceQueueSize(0)

	return q
}

// Enqueue adds an announcement to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordAnnounceDropped()
		return false
	}

	if len(q.events) >= q.capacity {
		metrics.RecordAnnounceDropped()
		return false
	}

	select {
	case q.events <- e:
		metrics.UpdateAnnounceQueueSize(len(q.events))
		return true
	case <-ctx.Done():
		metrics.RecordAnnounceDropped()
		return false
	default:
		metrics.RecordAnnounceDropped()
		return false
	}
}

// Dequeue returns a channel receiving announcements as they arrive.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for e := range q.events {
			select {
			case out <- e:
				metrics.UpdateAnnounceQueueSize(len(q.events))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued announcements.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.events)
	metrics.UpdateAnnounceQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

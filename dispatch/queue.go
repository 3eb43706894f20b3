package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-activity/pkg/types"
)

// defaultCapacity bounds the in-memory queue when none is configured.
const defaultCapacity = 1024

// ErrQueueClosed indicates an enqueue after Close.
var ErrQueueClosed = errors.New("go-activity: dispatch queue closed")

// ErrQueueFull indicates the queue rejected a payload because no consumer is
// draining it fast enough.
var ErrQueueFull = errors.New("go-activity: dispatch queue full")

// Queue is a bounded in-memory dispatch queue. It decouples the ingestion
// pipeline from persistence when write volume crosses the load threshold.
type Queue struct {
	mu       sync.RWMutex
	payloads chan types.TrackPayload
	closed   bool
}

// NewQueue constructs a queue with the given capacity; capacity <= 0 falls
// back to the default.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue{
		payloads: make(chan types.TrackPayload, capacity),
	}
}

var _ types.DispatchQueue = (*Queue)(nil)

// Enqueue accepts a payload for deferred persistence. A full queue fails fast
// rather than blocking the ingestion path.
func (q *Queue) Enqueue(ctx context.Context, payload types.TrackPayload) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.payloads <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Payloads exposes the consumer side of the queue.
func (q *Queue) Payloads() <-chan types.TrackPayload {
	return q.payloads
}

// Len reports the number of payloads awaiting persistence.
func (q *Queue) Len() int {
	return len(q.payloads)
}

// Close stops accepting payloads. Consumers drain what remains and exit.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.payloads)
}

// Package buffer provides a bounded generic FIFO queue used to decouple
// transport read loops from the sample sink. When the queue is full the
// configured overflow policy decides which side loses data; the queue never
// blocks a producer.
package buffer

import (
	"context"
	"sync"

	"github.com/c360/plotstream/errors"
)

// OverflowPolicy selects what happens when Write finds the queue full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest queued item to make room (default).
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming item.
	DropNewest
)

// DropCallback is invoked with each item lost to the overflow policy.
type DropCallback[T any] func(item T)

// Queue is a fixed-capacity FIFO with non-blocking writes and blocking,
// context-aware reads. Safe for concurrent use.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	items  []T
	head   int // next read position
	size   int
	closed bool

	stats Statistics
	opts  queueOptions[T]
}

// NewQueue creates a queue with the given capacity. Capacity below one is
// rejected.
func NewQueue[T any](capacity int, options ...Option[T]) (*Queue[T], error) {
	if capacity < 1 {
		return nil, errors.WrapInvalid(errors.ErrInvalidCapacity,
			"buffer", "NewQueue", "capacity validation")
	}

	q := &Queue[T]{
		items: make([]T, capacity),
		opts:  applyOptions(options...),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q, nil
}

// Write enqueues an item, applying the overflow policy when full.
// Writing to a closed queue returns an error.
func (q *Queue[T]) Write(item T) error {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "buffer", "Write", "queue closed")
	}

	var dropped T
	var didDrop bool

	if q.size == len(q.items) {
		q.stats.overflow()
		switch q.opts.overflowPolicy {
		case DropNewest:
			dropped, didDrop = item, true
			q.stats.drop()
			q.mu.Unlock()
			q.reportDrop(dropped, didDrop)
			return nil
		default: // DropOldest
			dropped, didDrop = q.items[q.head], true
			q.head = (q.head + 1) % len(q.items)
			q.size--
			q.stats.drop()
		}
	}

	q.items[(q.head+q.size)%len(q.items)] = item
	q.size++
	q.stats.write()
	if q.opts.gauge != nil {
		q.opts.gauge.Set(float64(q.size))
	}

	q.notEmpty.Signal()
	q.mu.Unlock()

	q.reportDrop(dropped, didDrop)
	return nil
}

func (q *Queue[T]) reportDrop(item T, didDrop bool) {
	if !didDrop {
		return
	}
	if q.opts.dropCounter != nil {
		q.opts.dropCounter.Inc()
	}
	if q.opts.dropCallback != nil {
		q.opts.dropCallback(item)
	}
}

// Read removes and returns the oldest item, blocking until one is available,
// the queue is closed, or ctx is cancelled.
func (q *Queue[T]) Read(ctx context.Context) (T, error) {
	var zero T

	// Wake waiters if the context is cancelled while blocked.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 {
		if q.closed {
			return zero, errors.WrapInvalid(errors.ErrAlreadyStopped, "buffer", "Read", "queue closed")
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		q.notEmpty.Wait()
	}

	return q.take(), nil
}

// TryRead removes and returns the oldest item without blocking.
func (q *Queue[T]) TryRead() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.size == 0 {
		return zero, false
	}
	return q.take(), true
}

// take removes the head item. Caller must hold q.mu and q.size > 0.
func (q *Queue[T]) take() T {
	item := q.items[q.head]
	var zero T
	q.items[q.head] = zero // release reference
	q.head = (q.head + 1) % len(q.items)
	q.size--
	q.stats.read()
	if q.opts.gauge != nil {
		q.opts.gauge.Set(float64(q.size))
	}
	return item
}

// Size returns the number of queued items.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Capacity returns the fixed capacity.
func (q *Queue[T]) Capacity() int {
	return len(q.items)
}

// IsEmpty reports whether the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return q.Size() == 0
}

// IsFull reports whether the queue is at capacity.
func (q *Queue[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size == len(q.items)
}

// Stats returns a snapshot of queue statistics.
func (q *Queue[T]) Stats() StatsSnapshot {
	return q.stats.snapshot()
}

// Close marks the queue closed. Pending items remain readable via TryRead;
// blocked readers are released. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
}

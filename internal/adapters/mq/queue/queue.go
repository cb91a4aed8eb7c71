// Package queue holds spine color jobs waiting for a worker.
//
// The queue is bounded and never blocks the caller: a job that does not fit
// is rejected and the book keeps its default spine color. A job that is
// already pending for the same book and image is rejected as a duplicate
// until a worker marks it done.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/clerb/internal/domain/dedupe"
	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/pkg/metrics"
)

const defaultCapacity = 1024

// Job is the payload flowing through the queue.
type Job = model.ColorJob

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull, ErrClosed or ErrDuplicate when
	// the job was not accepted.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel of jobs that is closed with the queue.
	Dequeue(ctx context.Context) <-chan Job

	// Done releases a job's pending slot so the same job may be queued again.
	Done(ctx context.Context, j Job)

	Len(ctx context.Context) int

	// Close stops accepting jobs. Jobs already queued are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	pending  dedupe.Deduper

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	if q.pending == nil {
		q.pending = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject("closed")
		return ErrClosed
	}
	if q.pending.SeenAndRecord(ctx, j.Key()) {
		metrics.RecordColorJobDuplicate()
		return ErrDuplicate
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	case <-ctx.Done():
		q.pending.Unrecord(ctx, j.Key())
		q.reject("context_cancelled")
		return ctx.Err()
	default:
		q.pending.Unrecord(ctx, j.Key())
		q.reject("queue_full")
		return ErrFull
	}
}

func (q *InMemoryQueue) reject(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				q.pending.Unrecord(context.Background(), j.Key())
				return
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Done(ctx context.Context, j Job) {
	q.pending.Unrecord(ctx, j.Key())
}

func (q *InMemoryQueue) Len(context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

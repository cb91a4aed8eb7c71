package queue

import "github.com/okian/clerb/internal/domain/dedupe"

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of pending jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithDeduper sets the set used to reject duplicate pending jobs.
func WithDeduper(d dedupe.Deduper) Option {
	return func(q *InMemoryQueue) {
		if d != nil {
			q.pending = d
		}
	}
}

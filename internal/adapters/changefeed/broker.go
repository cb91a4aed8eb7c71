// Package changefeed fans committed store changes out to live subscribers.
//
// Changes arrive from the local store and, on PostgreSQL, from other
// instances through LISTEN/NOTIFY. A change seen on both paths is delivered
// once.
package changefeed

import (
	"context"
	"sync"

	"github.com/okian/clerb/internal/domain/dedupe"
	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

const (
	defaultBufferSize = 64
	defaultSeenSize   = 10000
)

// Filter narrows a subscription. Zero values match everything.
type Filter struct {
	Tables []string
	BookID string
}

// Match reports whether c passes the filter.
func (f Filter) Match(c model.Change) bool {
	if f.BookID != "" && c.BookID != f.BookID {
		return false
	}
	if len(f.Tables) == 0 {
		return true
	}
	for _, t := range f.Tables {
		if t == c.Table {
			return true
		}
	}
	return false
}

type subscription struct {
	filter Filter
	ch     chan model.Change
}

// Broker delivers each change to every matching subscriber without blocking
// the publisher. A subscriber whose buffer is full misses the change.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool

	seen       dedupe.Deduper
	bufferSize int
}

// NewBroker creates a broker ready to accept subscribers.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subs:       make(map[uint64]*subscription),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.seen == nil {
		b.seen = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(defaultSeenSize))
	}
	return b
}

// Publish delivers c to matching subscribers. Changes with an id the broker
// has already delivered are ignored.
func (b *Broker) Publish(c model.Change) {
	if c.ID != "" && b.seen.SeenAndRecord(context.Background(), c.ID) {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	metrics.RecordChangePublished()
	for _, s := range b.subs {
		if !s.filter.Match(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			metrics.RecordChangeDropped()
		}
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(f Filter) (<-chan model.Change, func()) {
	ch := make(chan model.Change, b.bufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{filter: f, ch: ch}
	metrics.UpdateChangeSubscribers(len(b.subs))
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; !ok {
				return
			}
			delete(b.subs, id)
			close(ch)
			metrics.UpdateChangeSubscribers(len(b.subs))
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later publishes are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
	metrics.UpdateChangeSubscribers(0)
	logger.Named("changefeed").Debug(context.Background(), "broker closed")
}

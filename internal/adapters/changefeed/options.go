package changefeed

import (
	"time"

	"github.com/okian/clerb/internal/domain/dedupe"
)

// Option configures a Broker.
type Option func(*Broker)

// WithBufferSize sets the per-subscriber channel buffer.
func WithBufferSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithDeduper replaces the set of delivered change ids.
func WithDeduper(d dedupe.Deduper) Option {
	return func(b *Broker) {
		b.seen = d
	}
}

// ListenerOption configures a PGListener.
type ListenerOption func(*PGListener)

// WithChannel sets the NOTIFY channel to listen on.
func WithChannel(channel string) ListenerOption {
	return func(l *PGListener) {
		if channel != "" {
			l.channel = channel
		}
	}
}

// WithReconnectDelay sets the pause before reconnecting after a failure.
func WithReconnectDelay(d time.Duration) ListenerOption {
	return func(l *PGListener) {
		if d > 0 {
			l.reconnectDelay = d
		}
	}
}

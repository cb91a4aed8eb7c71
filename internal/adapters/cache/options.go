package cache

import "time"

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMaxEntries caps the number of stored values.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMaxTTL bounds how long any value is kept, whatever ttl it was stored
// with. Zero keeps values until their own ttl ends or they are evicted.
func WithMaxTTL(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d > 0 {
			m.maxTTL = d
		}
	}
}

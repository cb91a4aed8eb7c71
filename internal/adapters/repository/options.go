package repository

import "time"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMetricsUpdateInterval sets the interval for background shelf gauges.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *SQLStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithPublisher sets the receiver of committed changes.
func WithPublisher(p Publisher) Option {
	return func(s *SQLStore) {
		s.publisher = p
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

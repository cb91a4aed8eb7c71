// Package service provides the club service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/clerb/internal/adapters/catalog"
	"github.com/okian/clerb/internal/adapters/changefeed"
	"github.com/okian/clerb/internal/adapters/colors"
	colorqueue "github.com/okian/clerb/internal/adapters/mq/queue"
	workerpool "github.com/okian/clerb/internal/adapters/mq/worker"
	"github.com/okian/clerb/internal/adapters/repository"
	"github.com/okian/clerb/internal/domain/dedupe"
	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

// Catalog searches the book catalog.
type Catalog interface {
	Search(ctx context.Context, q string) ([]catalog.Volume, error)
	Volume(ctx context.Context, id string) (*catalog.Volume, error)
}

// Editions looks up edition records by ISBN.
type Editions interface {
	EditionByISBN(ctx context.Context, isbn string) (*catalog.Edition, error)
}

// Service implements the API dependencies for the club.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	broker    *changefeed.Broker
	catalog   Catalog
	editions  Editions
	extractor workerpool.Extractor

	colorQueue colorqueue.Queue
	workerPool *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	now         func() time.Time

	started bool
	cancel  context.CancelFunc
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBroker sets the change feed used for live updates.
func WithBroker(b *changefeed.Broker) Option {
	return func(s *Service) {
		if b != nil {
			s.broker = b
		}
	}
}

// WithCatalog sets the book search provider.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithEditions sets the provider used to fill in missing page counts.
func WithEditions(e Editions) Option {
	return func(s *Service) {
		s.editions = e
	}
}

// WithExtractor sets the spine color extractor used by workers.
func WithExtractor(e workerpool.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithWorkerCount sets the number of spine color workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending spine color jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the pending-job dedupe set.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithClock overrides the time used to split upcoming and past meetings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  10_000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.broker == nil {
		s.broker = changefeed.NewBroker()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start launches the spine color workers. The workers outlive ctx; they
// stop only when Stop has drained the queue.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.extractor == nil {
		s.extractor = colors.NewExtractor()
	}

	s.colorQueue = colorqueue.NewInMemoryQueue(
		colorqueue.WithCapacity(s.queueSize),
		colorqueue.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.colorQueue, s.extractor, s.store)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "club service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains pending spine color jobs and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "club service stopped")
}

// Subscribe registers a live change subscriber.
func (s *Service) Subscribe(f changefeed.Filter) (<-chan model.Change, func()) {
	return s.broker.Subscribe(f)
}

// enqueueColor schedules a spine color job. A rejected job leaves the
// default spine color in place.
func (s *Service) enqueueColor(ctx context.Context, b model.Book) {
	img := b.ThumbnailURL
	if img == "" {
		img = b.CoverURL
	}
	if img == "" {
		return
	}

	s.mu.RLock()
	q := s.colorQueue
	s.mu.RUnlock()
	if q == nil {
		return
	}

	if err := q.Enqueue(ctx, model.ColorJob{BookID: b.ID, ImageURL: img}); err != nil {
		s.logger.Warn(ctx, "spine color job not queued",
			logger.String("book_id", b.ID), logger.Error(err))
		return
	}
	metrics.UpdateQueueSize(q.Len(ctx))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"subscribers": s.broker.Subscribers(),
	}
	if s.started {
		stats["queueLength"] = s.colorQueue.Len(context.Background())
	}
	return stats
}

package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/clerb/internal/adapters/catalog"
	"github.com/okian/clerb/internal/adapters/changefeed"
	"github.com/okian/clerb/internal/adapters/repository"
	"github.com/okian/clerb/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var epoch = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := epoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// newStore opens a migrated SQLite store that publishes to broker.
func newStore(t *testing.T, broker *changefeed.Broker) *repository.SQLStore {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, "sqlite", repository.DialectConfig{Path: filepath.Join(t.TempDir(), "club.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	opts := []repository.Option{
		repository.WithClock(steppingClock()),
		repository.WithMetricsUpdateInterval(time.Hour),
	}
	if broker != nil {
		opts = append(opts, repository.WithPublisher(broker))
	}
	store := repository.NewSQLStore(ctx, db, opts...)
	t.Cleanup(func() {
		_ = store.Close()
		_ = db.Close()
	})
	return store
}

type fakeCatalog struct {
	mu      sync.Mutex
	volumes map[string]catalog.Volume
	calls   int
}

func (f *fakeCatalog) Search(_ context.Context, q string) ([]catalog.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []catalog.Volume
	for _, v := range f.volumes {
		if q != "" && v.VolumeInfo.Title == q {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Volume(_ context.Context, id string) (*catalog.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	v, ok := f.volumes[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

type fakeEditions struct {
	pages map[string]any
}

func (f *fakeEditions) EditionByISBN(_ context.Context, isbn string) (*catalog.Edition, error) {
	p, ok := f.pages[isbn]
	if !ok {
		return nil, nil
	}
	return &catalog.Edition{NumberOfPages: p}, nil
}

type fixedExtractor struct {
	color string
}

func (f fixedExtractor) DominantColor(context.Context, string) string {
	return f.color
}

// slowExtractor takes delay per image and fails the job if its context
// ends first.
type slowExtractor struct {
	color string
	delay time.Duration
}

func (s slowExtractor) DominantColor(ctx context.Context, _ string) string {
	select {
	case <-time.After(s.delay):
		return s.color
	case <-ctx.Done():
		return "canceled"
	}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func ptr[T any](v T) *T {
	return &v
}

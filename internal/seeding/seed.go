package seeding

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/clerb/pkg/logger"
)

type ratingJob struct {
	bookID   string
	memberID string
}

// Seed creates members and completed books, then submits pre and post
// ratings for every member and book pair concurrently.
func Seed(ctx context.Context, cfg Config) (*Stats, error) {
	cfg.normalize()
	log := logger.Named("seed")
	start := time.Now()
	c := newClient(cfg.BaseURL, cfg.Timeout)

	if err := c.get(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	stats := &Stats{}
	members, err := createMembers(ctx, c, cfg)
	if err != nil {
		return nil, err
	}
	stats.MembersCreated = len(members)
	log.Info(ctx, "members created", logger.Int("count", len(members)))

	books, err := createBooks(ctx, c, cfg, members[0].ID)
	if err != nil {
		return nil, err
	}
	stats.BooksCreated = len(books)
	log.Info(ctx, "books created", logger.Int("count", len(books)))

	submitRatings(ctx, c, cfg, members, books, stats)
	stats.Duration = time.Since(start)

	log.Info(ctx, "seeding finished",
		logger.Int("preRatings", stats.RatingsPre),
		logger.Int("postRatings", stats.RatingsPost),
		logger.Int("revealed", stats.Revealed),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))
	return stats, ctx.Err()
}

func createMembers(ctx context.Context, c *client, cfg Config) ([]member, error) {
	out := make([]member, cfg.Members)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range out {
		g.Go(func() error {
			body := map[string]string{"name": memberName(i)}
			return c.do(gctx, http.MethodPost, "/api/v1/members", "", body, &out[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("create members: %w", err)
	}
	return out, nil
}

func createBooks(ctx context.Context, c *client, cfg Config, addedBy string) ([]book, error) {
	out := make([]book, cfg.Books)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range out {
		g.Go(func() error {
			body := map[string]any{
				"title":      bookTitle(),
				"author":     bookAuthor(),
				"status":     "completed",
				"page_count": pageCount(),
			}
			return c.do(gctx, http.MethodPost, "/api/v1/books", addedBy, body, &out[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("create books: %w", err)
	}
	return out, nil
}

// submitRatings fans rating jobs out to cfg.Workers goroutines. Failures
// are counted, not returned.
func submitRatings(ctx context.Context, c *client, cfg Config, members []member, books []book, stats *Stats) {
	var pre, post, revealed, failed int64
	jobs := make(chan ratingJob, cfg.Workers*2)
	log := logger.Named("seed")

	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				if err := rate(ctx, c, cfg, job, &pre, &post, &revealed); err != nil {
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "rating failed", logger.String("book_id", job.bookID), logger.Error(err))
					}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, b := range books {
			for _, m := range members {
				select {
				case <-ctx.Done():
					return
				case jobs <- ratingJob{bookID: b.ID, memberID: m.ID}:
				}
			}
		}
	}()
	wg.Wait()

	stats.RatingsPre = int(atomic.LoadInt64(&pre))
	stats.RatingsPost = int(atomic.LoadInt64(&post))
	stats.Revealed = int(atomic.LoadInt64(&revealed))
	stats.Failed = int(atomic.LoadInt64(&failed))
}

func rate(ctx context.Context, c *client, cfg Config, job ratingJob, pre, post, revealed *int64) error {
	base := "/api/v1/books/" + job.bookID + "/ratings/"
	first := generateScore()
	if err := c.do(ctx, http.MethodPut, base+"pre", job.memberID, map[string]any{"score": first}, nil); err != nil {
		return err
	}
	atomic.AddInt64(pre, 1)

	second := driftScore(first)
	body := map[string]any{"score": second}
	if second != first {
		body["reason"] = "the discussion changed my mind"
	}
	var r rating
	if err := c.do(ctx, http.MethodPut, base+"post", job.memberID, body, &r); err != nil {
		return err
	}
	atomic.AddInt64(post, 1)

	if !cfg.Reveal {
		return nil
	}
	if err := c.do(ctx, http.MethodPut, "/api/v1/ratings/"+r.ID+"/visibility", job.memberID, map[string]bool{"visible": true}, nil); err != nil {
		return err
	}
	atomic.AddInt64(revealed, 1)
	return nil
}

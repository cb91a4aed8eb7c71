package seeding

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/internal/domain/ranking"
	"github.com/okian/clerb/internal/domain/types"
	"github.com/okian/clerb/pkg/logger"
)

// averageTolerance absorbs float noise from the JSON round trip.
const averageTolerance = 1e-9

// Result is the hall of fame as recomputed from served ratings.
type Result struct {
	Favorite      *types.ScoredBook
	LeastFavorite *types.ScoredBook
	Ranked        int
}

// Verify fetches the shelf and every completed book's visible ratings,
// recomputes the hall of fame and compares it with the server's.
func Verify(ctx context.Context, cfg Config) (*Result, error) {
	cfg.normalize()
	c := newClient(cfg.BaseURL, cfg.Timeout)

	var s shelf
	if err := c.get(ctx, "/api/v1/shelf", &s); err != nil {
		return nil, fmt.Errorf("fetch shelf: %w", err)
	}

	books := make([]model.Book, len(s.Books))
	lists := make([][]rating, len(s.Books))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, b := range s.Books {
		books[i] = model.Book{ID: b.ID, Title: b.Title, Status: model.BookStatus(b.Status)}
		if books[i].Status != model.StatusCompleted {
			continue
		}
		g.Go(func() error {
			return c.get(gctx, "/api/v1/books/"+b.ID+"/ratings", &lists[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch ratings: %w", err)
	}

	byBook := make(map[string][]model.Rating, len(books))
	for i, list := range lists {
		for _, r := range list {
			byBook[books[i].ID] = append(byBook[books[i].ID], r.model())
		}
	}

	scored := ranking.Score(books, byBook)
	hof := ranking.HallOfFame(scored)
	res := &Result{Favorite: hof.Favorite, LeastFavorite: hof.LeastFavorite, Ranked: len(scored)}

	if err := compare("favorite", hof.Favorite, s.HallOfFame.Favorite); err != nil {
		return res, err
	}
	if err := compare("least favorite", hof.LeastFavorite, s.HallOfFame.LeastFavorite); err != nil {
		return res, err
	}
	logger.Named("verify").Info(ctx, "hall of fame verified", logger.Int("ranked", res.Ranked))
	return res, nil
}

func compare(slot string, want *types.ScoredBook, got *scoredBook) error {
	switch {
	case want == nil && got == nil:
		return nil
	case want == nil:
		return fmt.Errorf("%w: %s: server has %s, expected none", ErrMismatch, slot, got.Book.ID)
	case got == nil:
		return fmt.Errorf("%w: %s: server has none, expected %s", ErrMismatch, slot, want.Book.ID)
	case want.Book.ID != got.Book.ID:
		return fmt.Errorf("%w: %s: server has %s, expected %s", ErrMismatch, slot, got.Book.ID, want.Book.ID)
	case got.Average == nil || math.Abs(got.Average.Value-want.Average) > averageTolerance:
		return fmt.Errorf("%w: %s: average differs from %.3f", ErrMismatch, slot, want.Average)
	}
	return nil
}

func (r rating) model() model.Rating {
	return model.Rating{
		ID:         r.ID,
		BookID:     r.BookID,
		MemberID:   r.MemberID,
		PreRating:  r.PreRating,
		PostRating: r.PostRating,
		IsVisible:  r.IsVisible,
	}
}

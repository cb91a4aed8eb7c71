// Package ranking orders completed books by their visible average score.
package ranking

import (
	"sort"

	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/internal/domain/rating"
	"github.com/okian/clerb/internal/domain/types"
)

// Score pairs each completed book with its visible average, dropping books
// that have no visible score. ratingsByBook is keyed by book id.
func Score(books []model.Book, ratingsByBook map[string][]model.Rating) []types.ScoredBook {
	out := make([]types.ScoredBook, 0, len(books))
	for _, b := range books {
		if b.Status != model.StatusCompleted {
			continue
		}
		avg, ok := rating.AverageVisible(ratingsByBook[b.ID])
		if !ok {
			continue
		}
		out = append(out, types.ScoredBook{Book: b, Average: avg})
	}
	return out
}

// Sort orders scored books best first. Equal averages keep their input order.
func Sort(scored []types.ScoredBook) []types.ScoredBook {
	sorted := make([]types.ScoredBook, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Average > sorted[j].Average
	})
	return sorted
}

// HallOfFame picks the favorite and least favorite from scored books.
// The least favorite is only set when at least two books are scored.
func HallOfFame(scored []types.ScoredBook) types.HallOfFame {
	sorted := Sort(scored)
	var h types.HallOfFame
	if len(sorted) == 0 {
		return h
	}
	first := sorted[0]
	h.Favorite = &first
	if len(sorted) >= 2 {
		last := sorted[len(sorted)-1]
		h.LeastFavorite = &last
	}
	return h
}

// Entries ranks scored books with 1-based positions. Books sharing an
// average share a rank.
func Entries(scored []types.ScoredBook) []types.Entry {
	sorted := Sort(scored)
	out := make([]types.Entry, len(sorted))
	for i, s := range sorted {
		rank := i + 1
		if i > 0 && s.Average == sorted[i-1].Average {
			rank = out[i-1].Rank
		}
		out[i] = types.Entry{Rank: rank, BookID: s.Book.ID, Title: s.Book.Title, Average: s.Average}
	}
	return out
}

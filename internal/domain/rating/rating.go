// Package rating reduces raw rating rows into per-book and per-member scores.
//
// All functions are pure. "No data" is reported as ok=false or a nil pointer,
// never as zero.
package rating

import (
	"github.com/okian/clerb/internal/domain/model"
)

// EffectiveScore returns the post-discussion score when present, else the
// pre-discussion score. ok is false when the row carries neither.
func EffectiveScore(r model.Rating) (float64, bool) {
	if r.PostRating != nil {
		return *r.PostRating, true
	}
	if r.PreRating != nil {
		return *r.PreRating, true
	}
	return 0, false
}

// AverageVisible returns the mean effective score of the visible rows.
// ok is false when no visible row has a score.
func AverageVisible(ratings []model.Rating) (float64, bool) {
	var sum float64
	var n int
	for _, r := range ratings {
		if !r.IsVisible {
			continue
		}
		if v, ok := EffectiveScore(r); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// MemberSummary is a member's view of their own ratings.
type MemberSummary struct {
	RatedBooks int
	Average    *float64
}

// SummarizeMember counts the distinct books a member scored and averages the
// scores. Visibility is ignored since members always see their own rows.
func SummarizeMember(ratings []model.Rating) MemberSummary {
	books := make(map[string]struct{}, len(ratings))
	var sum float64
	var n int
	for _, r := range ratings {
		v, ok := EffectiveScore(r)
		if !ok {
			continue
		}
		books[r.BookID] = struct{}{}
		sum += v
		n++
	}
	out := MemberSummary{RatedBooks: len(books)}
	if n > 0 {
		avg := sum / float64(n)
		out.Average = &avg
	}
	return out
}

// Breakdown splits the visible ratings of a book into pre and post averages.
type Breakdown struct {
	PreAverage  *float64
	PostAverage *float64
	Average     *float64
	PreCount    int
	PostCount   int
	Visible     int
	Hidden      int
}

// BreakdownOf builds the reveal panel for a book's ratings.
func BreakdownOf(ratings []model.Rating) Breakdown {
	var out Breakdown
	var preSum, postSum float64
	for _, r := range ratings {
		if !r.IsVisible {
			out.Hidden++
			continue
		}
		out.Visible++
		if r.PreRating != nil {
			preSum += *r.PreRating
			out.PreCount++
		}
		if r.PostRating != nil {
			postSum += *r.PostRating
			out.PostCount++
		}
	}
	if out.PreCount > 0 {
		v := preSum / float64(out.PreCount)
		out.PreAverage = &v
	}
	if out.PostCount > 0 {
		v := postSum / float64(out.PostCount)
		out.PostAverage = &v
	}
	if avg, ok := AverageVisible(ratings); ok {
		out.Average = &avg
	}
	return out
}

// ByBook groups rows by book id, keeping input order within each group.
func ByBook(ratings []model.Rating) map[string][]model.Rating {
	out := make(map[string][]model.Rating)
	for _, r := range ratings {
		out[r.BookID] = append(out[r.BookID], r)
	}
	return out
}

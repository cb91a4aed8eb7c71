// Package stats builds member statistics and the club overview from
// fetched snapshots.
package stats

import (
	"sort"

	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/internal/domain/rating"
	"github.com/okian/clerb/internal/domain/types"
)

// ForMember computes the statistics card for one member.
//
// shelf is every book the member's ratings may point at; pages read only
// counts books that are completed and that the member scored. attendance is
// the member's own RSVP rows.
func ForMember(
	member model.Member,
	shelf []model.Book,
	ratings []model.Rating,
	attendance []model.Attendance,
) types.MemberStats {
	summary := rating.SummarizeMember(ratings)
	out := types.MemberStats{
		Member:     member,
		RatedBooks: summary.RatedBooks,
		Average:    summary.Average,
	}

	byID := make(map[string]model.Book, len(shelf))
	for _, b := range shelf {
		byID[b.ID] = b
	}

	counted := make(map[string]struct{})
	for _, r := range ratings {
		score, ok := rating.EffectiveScore(r)
		if !ok {
			continue
		}
		b, known := byID[r.BookID]
		if !known {
			continue
		}
		if _, dup := counted[b.ID]; dup {
			continue
		}
		counted[b.ID] = struct{}{}
		out.Books = append(out.Books, types.RatedBook{Book: b, Score: score})
		if b.Status == model.StatusCompleted && b.PageCount != nil {
			out.PagesRead += *b.PageCount
		}
	}
	sort.SliceStable(out.Books, func(i, j int) bool {
		return out.Books[i].Score > out.Books[j].Score
	})

	for _, a := range attendance {
		if a.MemberID != "" && a.MemberID != member.ID {
			continue
		}
		if a.Status == model.RSVPGoing {
			out.MeetingsAttended++
		}
	}
	return out
}

// ClubSummary builds the home page overview. The last completed book is
// the most recently added one, not the most recently finished; visible
// holds visible rating rows keyed by book id.
func ClubSummary(books []model.Book, members int, visible map[string][]model.Rating) types.ClubSummary {
	out := types.ClubSummary{Members: members}
	var last *model.Book
	for i := range books {
		b := books[i]
		switch b.Status {
		case model.StatusReading:
			if out.Reading == nil {
				out.Reading = &b
			}
		case model.StatusCompleted:
			out.CompletedBooks++
			if last == nil || b.CreatedAt.After(last.CreatedAt) {
				last = &b
			}
		}
	}
	if last != nil {
		out.LastCompleted = last
		if avg, ok := rating.AverageVisible(visible[last.ID]); ok {
			out.LastAverage = &avg
		}
	}
	return out
}

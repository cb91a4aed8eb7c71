// Package types contains derived read shapes shared across the application.
package types

import "github.com/okian/clerb/internal/domain/model"

// ScoredBook pairs a book with its visible average score.
type ScoredBook struct {
	Book    model.Book
	Average float64
}

// Entry is one row of the ranked shelf.
type Entry struct {
	Rank    int
	BookID  string
	Title   string
	Average float64
}

// HallOfFame holds the favorite and least favorite completed books.
// Either may be nil.
type HallOfFame struct {
	Favorite      *ScoredBook
	LeastFavorite *ScoredBook
}

// Empty reports whether no completed book has a visible score.
func (h HallOfFame) Empty() bool {
	return h.Favorite == nil && h.LeastFavorite == nil
}

// RatedBook is a book with one member's effective score.
type RatedBook struct {
	Book  model.Book
	Score float64
}

// MemberStats is the per-member statistics card.
type MemberStats struct {
	Member           model.Member
	RatedBooks       int
	Average          *float64
	MeetingsAttended int
	PagesRead        int
	Books            []RatedBook
}

// ClubSummary is the home page overview.
type ClubSummary struct {
	CompletedBooks int
	Members        int
	Reading        *model.Book
	LastCompleted  *model.Book
	// LastAverage is nil when the last completed book has no visible score.
	LastAverage *float64
}

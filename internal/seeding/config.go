// Package seeding fills a running clerb server with generated members,
// books and ratings, and checks the server's hall of fame against a
// recomputation from the ratings it serves.
package seeding

import (
	"errors"
	"time"
)

// Defaults for Config.
const (
	DefaultMembers = 8
	DefaultBooks   = 12
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx API response.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrMismatch is returned when Verify disagrees with the server.
	ErrMismatch = errors.New("hall of fame mismatch")
)

// Config holds settings for a seeding run.
type Config struct {
	BaseURL string        // server root, e.g. http://localhost:9080
	Members int           // members to create
	Books   int           // completed books to create
	Workers int           // concurrent rating submitters
	Timeout time.Duration // per request
	Reveal  bool          // make every rating visible after submitting it
	Verbose bool
}

func (c *Config) normalize() {
	if c.Members < 1 {
		c.Members = DefaultMembers
	}
	if c.Books < 1 {
		c.Books = DefaultBooks
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Stats summarises a seeding run.
type Stats struct {
	MembersCreated int
	BooksCreated   int
	RatingsPre     int
	RatingsPost    int
	Revealed       int
	Failed         int
	Duration       time.Duration
}

type member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type book struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type score struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

type rating struct {
	ID         string   `json:"id"`
	BookID     string   `json:"book_id"`
	MemberID   string   `json:"member_id"`
	PreRating  *float64 `json:"pre_rating"`
	PostRating *float64 `json:"post_rating"`
	IsVisible  bool     `json:"is_visible"`
}

type scoredBook struct {
	Book    book   `json:"book"`
	Average *score `json:"average"`
}

type shelf struct {
	Books      []book `json:"books"`
	HallOfFame struct {
		Favorite      *scoredBook `json:"favorite"`
		LeastFavorite *scoredBook `json:"least_favorite"`
	} `json:"hall_of_fame"`
}

// MemberStats is one card of GET /api/v1/members/stats.
type MemberStats struct {
	Member struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"member"`
	RatedBooks       int    `json:"rated_books"`
	Average          *score `json:"average"`
	MeetingsAttended int    `json:"meetings_attended"`
	PagesRead        int    `json:"pages_read"`
}

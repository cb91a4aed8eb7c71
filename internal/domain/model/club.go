// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// BookStatus is a book's position in the club's reading lifecycle.
type BookStatus string

const (
	StatusUpcoming  BookStatus = "upcoming"
	StatusReading   BookStatus = "reading"
	StatusCompleted BookStatus = "completed"
)

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusReading, StatusCompleted:
		return true
	}
	return false
}

// ParseBookStatus converts a wire value into a BookStatus.
func ParseBookStatus(v string) (BookStatus, error) {
	s := BookStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown book status %q", v)
	}
	return s, nil
}

// RSVPStatus is a member's answer for a meeting.
type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPNotGoing RSVPStatus = "not_going"
)

// Valid reports whether s is a known RSVP answer.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPGoing, RSVPMaybe, RSVPNotGoing:
		return true
	}
	return false
}

// DefaultSpineColor is stored on new books until a color job finishes.
const DefaultSpineColor = "#3C1518"

// Book is an entry on the club shelf.
type Book struct {
	ID            string
	Title         string
	Author        string
	CoverURL      string
	ThumbnailURL  string
	SpineColor    string
	GoogleBooksID string
	ISBN          string
	Description   string
	Status        BookStatus
	PageCount     *int
	CompletedAt   *time.Time
	AddedBy       string
	CreatedAt     time.Time
}

// Member is a club member. Name is unique.
type Member struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Rating is one member's scores for one book, on a 0-10 scale.
// At most one row exists per (BookID, MemberID).
type Rating struct {
	ID           string
	BookID       string
	MemberID     string
	PreRating    *float64
	PostRating   *float64
	IsVisible    bool
	ChangeReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Meeting is a scheduled club gathering, optionally about a book.
type Meeting struct {
	ID          string
	Title       string
	ScheduledAt time.Time
	Location    string
	Notes       string
	BookID      string
	CreatedAt   time.Time
}

// Attendance is a member's RSVP for a meeting. One row per (MeetingID, MemberID).
type Attendance struct {
	ID        string
	MeetingID string
	MemberID  string
	Status    RSVPStatus
	CreatedAt time.Time
}

// DiscussionTopic is a spoiler-gated note attached to a book.
type DiscussionTopic struct {
	ID        string
	BookID    string
	MemberID  string
	Content   string
	IsSpoiler bool
	CreatedAt time.Time
}

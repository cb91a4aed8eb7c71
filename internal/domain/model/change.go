package model

import "time"

// ChangeOp is the kind of row mutation a Change describes.
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// Table names carried on Change.
const (
	TableBooks      = "books"
	TableMembers    = "members"
	TableRatings    = "ratings"
	TableMeetings   = "meetings"
	TableAttendance = "attendance"
	TableTopics     = "discussion_topics"
)

// Change notifies subscribers that a row was written so they can refetch.
type Change struct {
	ID     string    `json:"id"`
	Table  string    `json:"table"`
	Op     ChangeOp  `json:"op"`
	RowID  string    `json:"row_id"`
	BookID string    `json:"book_id,omitempty"`
	At     time.Time `json:"at"`
}

// ColorJob asks a worker to derive a spine color for a book from an image.
type ColorJob struct {
	BookID   string
	ImageURL string
}

// Key identifies a pending job for deduplication.
func (j ColorJob) Key() string {
	return j.BookID + "|" + j.ImageURL
}

package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/okian/clerb/internal/domain/model"
)

var (
	bookStatuses = []interface{}{
		string(model.StatusUpcoming), string(model.StatusReading), string(model.StatusCompleted),
	}
	rsvpStatuses = []interface{}{
		string(model.RSVPGoing), string(model.RSVPMaybe), string(model.RSVPNotGoing),
	}
)

type createMemberRequest struct {
	Name string `json:"name"`
}

func (r createMemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("name is required"), validation.Length(1, 80)),
	)
}

// createBookRequest adds a book by hand, or from the catalog when VolumeID
// is set.
type createBookRequest struct {
	VolumeID      string `json:"volume_id,omitempty"`
	Title         string `json:"title,omitempty"`
	Author        string `json:"author,omitempty"`
	CoverURL      string `json:"cover_url,omitempty"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	GoogleBooksID string `json:"google_books_id,omitempty"`
	ISBN          string `json:"isbn,omitempty"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status,omitempty"`
	PageCount     *int   `json:"page_count,omitempty"`
}

func (r createBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.When(r.VolumeID == "", validation.Required.Error("title or volume_id is required")),
			validation.Length(0, 300),
		),
		validation.Field(&r.Author, validation.Length(0, 200)),
		validation.Field(&r.CoverURL, is.URL),
		validation.Field(&r.ThumbnailURL, is.URL),
		validation.Field(&r.ISBN, validation.Length(10, 17)),
		validation.Field(&r.Status, validation.In(bookStatuses...)),
		validation.Field(&r.PageCount, validation.Min(0)),
	)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (r statusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(bookStatuses...)),
	)
}

type scoreRequest struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason,omitempty"`
}

func (r scoreRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Score,
			validation.NotNil.Error("score is required"),
			validation.Min(0.0),
			validation.Max(10.0),
		),
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

func (r visibilityRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Visible, validation.NotNil.Error("visible is required")),
	)
}

type topicRequest struct {
	Content string `json:"content"`
}

func (r topicRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 2000)),
	)
}

type meetingRequest struct {
	Title       string `json:"title"`
	ScheduledAt string `json:"scheduled_at"`
	Location    string `json:"location,omitempty"`
	Notes       string `json:"notes,omitempty"`
	BookID      string `json:"book_id,omitempty"`
}

func (r meetingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.ScheduledAt,
			validation.Required,
			validation.Date(time.RFC3339).Error("must be an RFC3339 timestamp"),
		),
		validation.Field(&r.Location, validation.Length(0, 200)),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
	)
}

// meeting converts a validated request into a model.
func (r meetingRequest) meeting(id string) model.Meeting {
	at, _ := time.Parse(time.RFC3339, r.ScheduledAt)
	return model.Meeting{
		ID:          id,
		Title:       r.Title,
		ScheduledAt: at,
		Location:    r.Location,
		Notes:       r.Notes,
		BookID:      r.BookID,
	}
}

type rsvpRequest struct {
	Status string `json:"status"`
}

func (r rsvpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(rsvpStatuses...)),
	)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/clerb/internal/adapters/catalog"
	"github.com/okian/clerb/internal/adapters/changefeed"
	service "github.com/okian/clerb/internal/app"
	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/internal/domain/types"
	"github.com/okian/clerb/pkg/logger"
)

// MemberHeader carries the acting member's id.
const MemberHeader = "X-Member-ID"

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ListMembers(ctx context.Context) ([]model.Member, error)
	CreateMember(ctx context.Context, name string) (model.Member, error)
	MemberStats(ctx context.Context, memberID string) (types.MemberStats, error)
	AllMemberStats(ctx context.Context) ([]types.MemberStats, error)

	Shelf(ctx context.Context) (service.Shelf, error)
	Summary(ctx context.Context) (types.ClubSummary, error)
	ListBooks(ctx context.Context, status model.BookStatus) ([]model.Book, error)
	AddBook(ctx context.Context, memberID string, in service.NewBook) (model.Book, error)
	AddFromCatalog(ctx context.Context, memberID, volumeID string, status model.BookStatus) (model.Book, error)
	BookDetail(ctx context.Context, viewerID, bookID string) (service.BookDetail, error)
	Covers(ctx context.Context, bookID string) ([]string, error)
	UpdateBookStatus(ctx context.Context, bookID string, status model.BookStatus) (model.Book, error)
	DeleteBook(ctx context.Context, bookID string) error
	SearchCatalog(ctx context.Context, q string) ([]catalog.Volume, error)

	SubmitPreRating(ctx context.Context, memberID, bookID string, score float64) (model.Rating, error)
	SubmitPostRating(ctx context.Context, memberID, bookID string, score float64, reason string) (model.Rating, error)
	SetRatingVisibility(ctx context.Context, memberID, ratingID string, visible bool) (model.Rating, error)
	BookRatings(ctx context.Context, viewerID, bookID string) ([]model.Rating, error)

	Topics(ctx context.Context, bookID string) ([]model.DiscussionTopic, error)
	AddTopic(ctx context.Context, memberID, bookID, content string) (model.DiscussionTopic, error)

	Meetings(ctx context.Context, window service.MeetingWindow) ([]model.Meeting, error)
	CreateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error)
	UpdateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	RSVP(ctx context.Context, memberID, meetingID string, status model.RSVPStatus) (model.Attendance, error)
	Attendance(ctx context.Context, meetingID string) ([]model.Attendance, error)

	Subscribe(f changefeed.Filter) (<-chan model.Change, func())
}

// Server wires HTTP routes for the club API.
type Server struct {
	deps   Dependencies
	health *HealthHandler
	stats  *StatsHandler
	events *EventsHandler
	log    logger.Logger
}

// NewServer creates a new API server with all handlers. pinger may be nil.
func NewServer(deps Dependencies, statsProvider StatsProvider, pinger Pinger) *Server {
	return &Server{
		deps:   deps,
		health: NewHealthHandler(pinger),
		stats:  NewStatsHandler(statsProvider),
		events: NewEventsHandler(deps),
		log:    logger.Get().Named("api"),
	}
}

type route struct {
	pattern  string
	endpoint string
	handler  http.HandlerFunc
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	routes := []route{
		{"GET /healthz", "healthz", s.health.HandleHealth},
		{"GET /stats", "stats", s.stats.HandleStats},

		{"GET /api/v1/members", "members", s.listMembers},
		{"POST /api/v1/members", "members", s.createMember},
		{"GET /api/v1/members/stats", "member_stats", s.allMemberStats},
		{"GET /api/v1/members/{id}/stats", "member_stats", s.memberStats},

		{"GET /api/v1/shelf", "shelf", s.shelf},
		{"GET /api/v1/summary", "summary", s.summary},

		{"GET /api/v1/books", "books", s.listBooks},
		{"POST /api/v1/books", "books", s.createBook},
		{"GET /api/v1/books/{id}", "book", s.getBook},
		{"PUT /api/v1/books/{id}/status", "book_status", s.updateBookStatus},
		{"DELETE /api/v1/books/{id}", "book", s.deleteBook},
		{"GET /api/v1/books/{id}/covers", "book_covers", s.bookCovers},

		{"GET /api/v1/books/{id}/ratings", "ratings", s.listRatings},
		{"PUT /api/v1/books/{id}/ratings/pre", "ratings", s.preRating},
		{"PUT /api/v1/books/{id}/ratings/post", "ratings", s.postRating},
		{"PUT /api/v1/ratings/{id}/visibility", "rating_visibility", s.ratingVisibility},

		{"GET /api/v1/books/{id}/topics", "topics", s.listTopics},
		{"POST /api/v1/books/{id}/topics", "topics", s.createTopic},

		{"GET /api/v1/meetings", "meetings", s.listMeetings},
		{"POST /api/v1/meetings", "meetings", s.createMeeting},
		{"PUT /api/v1/meetings/{id}", "meeting", s.updateMeeting},
		{"DELETE /api/v1/meetings/{id}", "meeting", s.deleteMeeting},
		{"PUT /api/v1/meetings/{id}/rsvp", "rsvp", s.rsvp},
		{"GET /api/v1/meetings/{id}/attendance", "attendance", s.attendance},

		{"GET /api/v1/catalog/search", "catalog_search", s.searchCatalog},

		{"GET /api/v1/changes", "changes", s.events.HandleChanges},
	}
	for _, rt := range routes {
		mux.HandleFunc(rt.pattern, MetricsMiddleware(rt.handler, rt.endpoint))
	}
	mux.Handle("GET /metrics", MetricsHandler())
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail classifies err and writes it. Server errors are logged and their
// detail is not sent to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err),
		)
		err = nil
	}
	writeError(w, status, code, err)
}

// validatable is implemented by request DTOs.
type validatable interface {
	Validate() error
}

// decode reads a JSON body into dst and validates it.
func decode(op string, r *http.Request, dst validatable) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return NewKind(op, ErrBadRequest)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := dst.Validate(); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// memberID returns the acting member from the request header.
func memberID(op string, r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(MemberHeader))
	if id == "" {
		return "", NewKind(op, ErrMissingMember)
	}
	return id, nil
}

// viewerID returns the acting member when present.
func viewerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(MemberHeader))
}

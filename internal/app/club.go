package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/internal/domain/rating"
	"github.com/okian/clerb/internal/domain/stats"
	"github.com/okian/clerb/internal/domain/types"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

// statsFanOut bounds concurrent per-member queries.
const statsFanOut = 4

// MeetingWindow selects meetings relative to now.
type MeetingWindow string

const (
	MeetingsUpcoming MeetingWindow = "upcoming"
	MeetingsPast     MeetingWindow = "past"
)

// ListMembers returns members ordered by name.
func (s *Service) ListMembers(ctx context.Context) ([]model.Member, error) {
	return s.store.ListMembers(ctx)
}

// CreateMember adds a member. Names are unique.
func (s *Service) CreateMember(ctx context.Context, name string) (model.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Member{}, invalid("member name")
	}
	m, err := s.store.CreateMember(ctx, name)
	if err != nil {
		return model.Member{}, fmt.Errorf("create member %q: %w", name, err)
	}
	s.logger.Info(ctx, "member joined", logger.String("member_id", m.ID), logger.String("name", m.Name))
	return m, nil
}

// MemberStats builds one member's statistics card.
func (s *Service) MemberStats(ctx context.Context, memberID string) (types.MemberStats, error) {
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return types.MemberStats{}, err
	}
	shelf, err := s.store.ListBooks(ctx, "")
	if err != nil {
		return types.MemberStats{}, fmt.Errorf("list books: %w", err)
	}
	return s.memberStats(ctx, m, shelf)
}

func (s *Service) memberStats(ctx context.Context, m model.Member, shelf []model.Book) (types.MemberStats, error) {
	ratings, err := s.store.ListRatingsByMember(ctx, m.ID)
	if err != nil {
		return types.MemberStats{}, fmt.Errorf("ratings of %s: %w", m.ID, err)
	}
	attendance, err := s.store.ListAttendanceByMember(ctx, m.ID)
	if err != nil {
		return types.MemberStats{}, fmt.Errorf("attendance of %s: %w", m.ID, err)
	}
	return stats.ForMember(m, shelf, ratings, attendance), nil
}

// AllMemberStats builds every member's card, in member name order.
func (s *Service) AllMemberStats(ctx context.Context) ([]types.MemberStats, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	shelf, err := s.store.ListBooks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	out := make([]types.MemberStats, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsFanOut)
	for i, m := range members {
		g.Go(func() error {
			ms, err := s.memberStats(gctx, m, shelf)
			if err != nil {
				return err
			}
			out[i] = ms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary builds the home page overview.
func (s *Service) Summary(ctx context.Context) (types.ClubSummary, error) {
	books, err := s.store.ListBooks(ctx, "")
	if err != nil {
		return types.ClubSummary{}, fmt.Errorf("list books: %w", err)
	}
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return types.ClubSummary{}, fmt.Errorf("list members: %w", err)
	}

	var completed []string
	for _, b := range books {
		if b.Status == model.StatusCompleted {
			completed = append(completed, b.ID)
		}
	}
	visible := map[string][]model.Rating{}
	if len(completed) > 0 {
		rs, err := s.store.ListVisibleRatings(ctx, completed)
		if err != nil {
			return types.ClubSummary{}, fmt.Errorf("list visible ratings: %w", err)
		}
		visible = rating.ByBook(rs)
	}
	return stats.ClubSummary(books, len(members), visible), nil
}

// SubmitPreRating records memberID's score before the discussion. The row
// stays hidden until the member reveals it.
func (s *Service) SubmitPreRating(ctx context.Context, memberID, bookID string, score float64) (model.Rating, error) {
	if err := s.requireMemberAndBook(ctx, memberID, bookID); err != nil {
		return model.Rating{}, err
	}
	r, err := s.store.UpsertPreRating(ctx, bookID, memberID, score)
	if err != nil {
		return model.Rating{}, fmt.Errorf("pre rating: %w", err)
	}
	metrics.RecordRating("pre")
	return r, nil
}

// SubmitPostRating records memberID's score after the discussion. A pre
// rating must exist.
func (s *Service) SubmitPostRating(ctx context.Context, memberID, bookID string, score float64, reason string) (model.Rating, error) {
	if err := s.requireMemberAndBook(ctx, memberID, bookID); err != nil {
		return model.Rating{}, err
	}
	r, err := s.store.SetPostRating(ctx, bookID, memberID, score, strings.TrimSpace(reason))
	if err != nil {
		return model.Rating{}, fmt.Errorf("post rating: %w", err)
	}
	metrics.RecordRating("post")
	return r, nil
}

// SetRatingVisibility reveals or hides a rating. Only its owner may do so.
func (s *Service) SetRatingVisibility(ctx context.Context, memberID, ratingID string, visible bool) (model.Rating, error) {
	r, err := s.store.GetRating(ctx, ratingID)
	if err != nil {
		return model.Rating{}, err
	}
	if r.MemberID != memberID {
		return model.Rating{}, fmt.Errorf("rating %s: %w", ratingID, ErrForbidden)
	}
	return s.store.SetRatingVisibility(ctx, ratingID, visible)
}

// BookRatings returns a book's visible ratings plus viewerID's own row.
func (s *Service) BookRatings(ctx context.Context, viewerID, bookID string) ([]model.Rating, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	rs, err := s.store.ListRatingsByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Rating, 0, len(rs))
	for _, r := range rs {
		if r.IsVisible || (viewerID != "" && r.MemberID == viewerID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) requireMemberAndBook(ctx context.Context, memberID, bookID string) error {
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		return fmt.Errorf("member: %w", err)
	}
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return fmt.Errorf("book: %w", err)
	}
	return nil
}

// Topics lists a book's discussion topics oldest first.
func (s *Service) Topics(ctx context.Context, bookID string) ([]model.DiscussionTopic, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.store.ListTopics(ctx, bookID)
}

// AddTopic posts a spoiler topic on a book. memberID may be empty.
func (s *Service) AddTopic(ctx context.Context, memberID, bookID, content string) (model.DiscussionTopic, error) {
	if memberID != "" {
		if _, err := s.store.GetMember(ctx, memberID); err != nil {
			return model.DiscussionTopic{}, fmt.Errorf("member: %w", err)
		}
	}
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return model.DiscussionTopic{}, fmt.Errorf("book: %w", err)
	}
	return s.store.CreateTopic(ctx, model.DiscussionTopic{
		BookID:   bookID,
		MemberID: memberID,
		Content:  content,
	})
}

// Meetings lists upcoming meetings soonest first, or past meetings most
// recent first. An empty window lists all in schedule order.
func (s *Service) Meetings(ctx context.Context, window MeetingWindow) ([]model.Meeting, error) {
	all, err := s.store.ListMeetings(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch window {
	case "":
		return all, nil
	case MeetingsUpcoming:
		out := make([]model.Meeting, 0, len(all))
		for _, m := range all {
			if !m.ScheduledAt.Before(now) {
				out = append(out, m)
			}
		}
		return out, nil
	case MeetingsPast:
		out := make([]model.Meeting, 0, len(all))
		for _, m := range all {
			if m.ScheduledAt.Before(now) {
				out = append(out, m)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		})
		return out, nil
	default:
		return nil, invalid(fmt.Sprintf("meeting window %q", window))
	}
}

// CreateMeeting schedules a meeting.
func (s *Service) CreateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error) {
	if err := s.checkMeetingBook(ctx, m); err != nil {
		return model.Meeting{}, err
	}
	out, err := s.store.CreateMeeting(ctx, m)
	if err != nil {
		return model.Meeting{}, err
	}
	metrics.RecordMeetingChange("create")
	return out, nil
}

// UpdateMeeting replaces a meeting's details.
func (s *Service) UpdateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error) {
	if err := s.checkMeetingBook(ctx, m); err != nil {
		return model.Meeting{}, err
	}
	out, err := s.store.UpdateMeeting(ctx, m)
	if err != nil {
		return model.Meeting{}, err
	}
	metrics.RecordMeetingChange("update")
	return out, nil
}

// DeleteMeeting removes a meeting and its RSVPs.
func (s *Service) DeleteMeeting(ctx context.Context, id string) error {
	if err := s.store.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	metrics.RecordMeetingChange("delete")
	return nil
}

func (s *Service) checkMeetingBook(ctx context.Context, m model.Meeting) error {
	if m.BookID == "" {
		return nil
	}
	if _, err := s.store.GetBook(ctx, m.BookID); err != nil {
		return fmt.Errorf("meeting book: %w", err)
	}
	return nil
}

// RSVP records memberID's answer for a meeting.
func (s *Service) RSVP(ctx context.Context, memberID, meetingID string, status model.RSVPStatus) (model.Attendance, error) {
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		return model.Attendance{}, fmt.Errorf("member: %w", err)
	}
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return model.Attendance{}, err
	}
	a, err := s.store.UpsertAttendance(ctx, meetingID, memberID, status)
	if err != nil {
		return model.Attendance{}, err
	}
	metrics.RecordMeetingChange("rsvp")
	return a, nil
}

// Attendance lists RSVPs for a meeting.
func (s *Service) Attendance(ctx context.Context, meetingID string) ([]model.Attendance, error) {
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	return s.store.ListAttendance(ctx, meetingID)
}

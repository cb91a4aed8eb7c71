package repository

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/pkg/logger"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []model.Change
}

func (p *recordingPublisher) Publish(c model.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

func (p *recordingPublisher) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.changes))
	for _, c := range p.changes {
		out = append(out, c.Table)
	}
	return out
}

// steppingClock returns a time source that advances one second per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) (*SQLStore, *recordingPublisher) {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", DialectConfig{Path: filepath.Join(t.TempDir(), "club.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pub := &recordingPublisher{}
	store := NewSQLStore(ctx, db, WithPublisher(pub), WithClock(steppingClock()), WithMetricsUpdateInterval(time.Hour))
	t.Cleanup(func() {
		_ = store.Close()
		_ = db.Close()
	})
	return store, pub
}

func mustMember(t *testing.T, s *SQLStore, name string) model.Member {
	t.Helper()
	m, err := s.CreateMember(context.Background(), name)
	if err != nil {
		t.Fatalf("create member %s: %v", name, err)
	}
	return m
}

func mustBook(t *testing.T, s *SQLStore, title string, status model.BookStatus) model.Book {
	t.Helper()
	b, err := s.CreateBook(context.Background(), model.Book{Title: title, Status: status})
	if err != nil {
		t.Fatalf("create book %s: %v", title, err)
	}
	return b
}

func TestMigrate_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	applied, err := store.DB().Migrate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected no migrations on second run, got %v", applied)
	}
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	store, pub := newTestStore(t)

	mustMember(t, store, "  Zoe ")
	ada := mustMember(t, store, "Ada")

	if _, err := store.CreateMember(ctx, "Ada"); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate name, got %v", err)
	}

	got, err := store.GetMember(ctx, ada.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Ada" {
		t.Errorf("expected Ada, got %s", got.Name)
	}

	members, err := store.ListMembers(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 2 || members[0].Name != "Ada" || members[1].Name != "Zoe" {
		t.Errorf("expected [Ada Zoe], got %+v", members)
	}

	if _, err := store.GetMember(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if n := len(pub.tables()); n != 2 {
		t.Errorf("expected 2 published changes, got %d", n)
	}
}

func TestBooks_Defaults(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	b, err := store.CreateBook(ctx, model.Book{Title: "Piranesi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != model.StatusUpcoming {
		t.Errorf("expected upcoming, got %s", b.Status)
	}
	if b.SpineColor != model.DefaultSpineColor {
		t.Errorf("expected default spine, got %s", b.SpineColor)
	}
	if b.CompletedAt != nil {
		t.Error("expected no completion time")
	}

	if _, err := store.CreateBook(ctx, model.Book{Title: "x", Status: "lost"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	done, err := store.CreateBook(ctx, model.Book{Title: "Done", Status: model.StatusCompleted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.CompletedAt == nil {
		t.Error("expected completion time on completed book")
	}
}

func TestBooks_SingleReading(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first := mustBook(t, store, "First", model.StatusReading)
	second := mustBook(t, store, "Second", model.StatusUpcoming)

	if _, err := store.UpdateBookStatus(ctx, second.ID, model.StatusReading); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reading, err := store.ListBooks(ctx, model.StatusReading)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reading) != 1 || reading[0].ID != second.ID {
		t.Fatalf("expected only %s reading, got %+v", second.ID, reading)
	}

	got, err := store.GetBook(ctx, first.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusCompleted || got.CompletedAt == nil {
		t.Errorf("expected first book completed with timestamp, got %+v", got)
	}

	third := mustBook(t, store, "Third", model.StatusReading)
	reading, _ = store.ListBooks(ctx, model.StatusReading)
	if len(reading) != 1 || reading[0].ID != third.ID {
		t.Errorf("expected only %s reading, got %+v", third.ID, reading)
	}
}

func TestBooks_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	b := mustBook(t, store, "Book", model.StatusUpcoming)

	done, err := store.UpdateBookStatus(ctx, b.ID, model.StatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("expected completion time")
	}
	stamp := *done.CompletedAt

	again, err := store.UpdateBookStatus(ctx, b.ID, model.StatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.CompletedAt.Equal(stamp) {
		t.Errorf("expected completion time to stay %v, got %v", stamp, again.CompletedAt)
	}

	back, err := store.UpdateBookStatus(ctx, b.ID, model.StatusUpcoming)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.CompletedAt != nil {
		t.Error("expected completion time cleared")
	}

	if _, err := store.UpdateBookStatus(ctx, "missing", model.StatusReading); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.UpdateBookStatus(ctx, b.ID, "shelved"); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestBooks_ListOrderAndFields(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	older := mustBook(t, store, "Older", model.StatusUpcoming)
	newer := mustBook(t, store, "Newer", model.StatusUpcoming)

	if err := store.SetSpineColor(ctx, older.ID, "rgb(10, 20, 30)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetPageCount(ctx, older.ID, 412); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetSpineColor(ctx, "missing", "#000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	books, err := store.ListBooks(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(books) != 2 || books[0].ID != newer.ID || books[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", books)
	}
	if books[1].SpineColor != "rgb(10, 20, 30)" {
		t.Errorf("expected spine color set, got %s", books[1].SpineColor)
	}
	if books[1].PageCount == nil || *books[1].PageCount != 412 {
		t.Errorf("expected 412 pages, got %v", books[1].PageCount)
	}
}

func TestBooks_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	ada := mustMember(t, store, "Ada")
	b := mustBook(t, store, "Gone", model.StatusCompleted)

	if _, err := store.UpsertPreRating(ctx, b.ID, ada.ID, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreateTopic(ctx, model.DiscussionTopic{BookID: b.ID, MemberID: ada.ID, Content: "ending?"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meeting, err := store.CreateMeeting(ctx, model.Meeting{Title: "Talk", ScheduledAt: time.Now(), BookID: b.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.DeleteBook(ctx, b.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.GetBook(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	ratings, _ := store.ListRatingsByMember(ctx, ada.ID)
	if len(ratings) != 0 {
		t.Errorf("expected ratings removed, got %d", len(ratings))
	}
	got, err := store.GetMeeting(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BookID != "" {
		t.Errorf("expected meeting detached from book, got %s", got.BookID)
	}
	if err := store.DeleteBook(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRatings_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	ada := mustMember(t, store, "Ada")
	b := mustBook(t, store, "Book", model.StatusCompleted)

	if _, err := store.SetPostRating(ctx, b.ID, ada.ID, 8, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for post rating without row, got %v", err)
	}

	pre, err := store.UpsertPreRating(ctx, b.ID, ada.ID, 6.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pre.IsVisible {
		t.Error("expected new rating hidden")
	}
	if pre.PreRating == nil || *pre.PreRating != 6.5 {
		t.Errorf("expected pre 6.5, got %v", pre.PreRating)
	}

	shown, err := store.SetRatingVisibility(ctx, pre.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !shown.IsVisible {
		t.Error("expected rating visible")
	}

	post, err := store.SetPostRating(ctx, b.ID, ada.ID, 9, "the ending landed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.ID != pre.ID {
		t.Errorf("expected same row, got %s and %s", pre.ID, post.ID)
	}
	if post.PostRating == nil || *post.PostRating != 9 || post.ChangeReason != "the ending landed" {
		t.Errorf("unexpected post rating %+v", post)
	}
	if !post.IsVisible {
		t.Error("expected post rating to keep visibility")
	}

	again, err := store.UpsertPreRating(ctx, b.ID, ada.ID, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.IsVisible {
		t.Error("expected pre rating update to hide the row")
	}
	if again.PostRating == nil || *again.PostRating != 9 {
		t.Error("expected post rating preserved")
	}

	if _, err := store.UpsertPreRating(ctx, b.ID, ada.ID, 11); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	if _, err := store.UpsertPreRating(ctx, b.ID, ada.ID, math.NaN()); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for NaN pre rating, got %v", err)
	}
	if _, err := store.SetPostRating(ctx, b.ID, ada.ID, math.NaN(), ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for NaN post rating, got %v", err)
	}
	if _, err := store.SetRatingVisibility(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRatings_VisibleFilter(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	ada := mustMember(t, store, "Ada")
	bo := mustMember(t, store, "Bo")
	b1 := mustBook(t, store, "One", model.StatusCompleted)
	b2 := mustBook(t, store, "Two", model.StatusCompleted)

	r1, _ := store.UpsertPreRating(ctx, b1.ID, ada.ID, 8)
	_, _ = store.UpsertPreRating(ctx, b1.ID, bo.ID, 2)
	r3, _ := store.UpsertPreRating(ctx, b2.ID, ada.ID, 5)
	_, _ = store.SetRatingVisibility(ctx, r1.ID, true)
	_, _ = store.SetRatingVisibility(ctx, r3.ID, true)

	all, err := store.ListVisibleRatings(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 visible ratings, got %d", len(all))
	}

	one, err := store.ListVisibleRatings(ctx, []string{b1.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(one) != 1 || one[0].ID != r1.ID {
		t.Errorf("expected only %s, got %+v", r1.ID, one)
	}

	byBook, _ := store.ListRatingsByBook(ctx, b1.ID)
	if len(byBook) != 2 {
		t.Errorf("expected 2 ratings for book, got %d", len(byBook))
	}
}

func TestMeetings_AndAttendance(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	ada := mustMember(t, store, "Ada")
	base := time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)

	later, err := store.CreateMeeting(ctx, model.Meeting{Title: "Later", ScheduledAt: base.Add(48 * time.Hour)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sooner, err := store.CreateMeeting(ctx, model.Meeting{Title: "Sooner", ScheduledAt: base, Location: "Cafe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreateMeeting(ctx, model.Meeting{Title: " "}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	meetings, err := store.ListMeetings(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(meetings) != 2 || meetings[0].ID != sooner.ID || meetings[1].ID != later.ID {
		t.Fatalf("expected ascending schedule, got %+v", meetings)
	}
	if meetings[0].Location != "Cafe" {
		t.Errorf("expected location Cafe, got %s", meetings[0].Location)
	}

	later.Notes = "bring snacks"
	updated, err := store.UpdateMeeting(ctx, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Notes != "bring snacks" {
		t.Errorf("expected notes updated, got %q", updated.Notes)
	}

	if _, err := store.UpsertAttendance(ctx, sooner.ID, ada.ID, model.RSVPMaybe); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rsvp, err := store.UpsertAttendance(ctx, sooner.ID, ada.ID, model.RSVPGoing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rsvp.Status != model.RSVPGoing {
		t.Errorf("expected going, got %s", rsvp.Status)
	}
	if _, err := store.UpsertAttendance(ctx, sooner.ID, ada.ID, "perhaps"); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	list, _ := store.ListAttendance(ctx, sooner.ID)
	if len(list) != 1 {
		t.Errorf("expected one RSVP after upsert, got %d", len(list))
	}
	byMember, _ := store.ListAttendanceByMember(ctx, ada.ID)
	if len(byMember) != 1 {
		t.Errorf("expected one RSVP for member, got %d", len(byMember))
	}

	if err := store.DeleteMeeting(ctx, sooner.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := store.ListAttendance(ctx, "")
	if len(all) != 0 {
		t.Errorf("expected attendance removed with meeting, got %d", len(all))
	}
	if err := store.DeleteMeeting(ctx, sooner.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTopics(t *testing.T) {
	ctx := context.Background()
	store, pub := newTestStore(t)
	b := mustBook(t, store, "Book", model.StatusReading)

	first, err := store.CreateTopic(ctx, model.DiscussionTopic{BookID: b.ID, Content: " Who lied? "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.IsSpoiler || first.Content != "Who lied?" {
		t.Errorf("unexpected topic %+v", first)
	}
	if _, err := store.CreateTopic(ctx, model.DiscussionTopic{BookID: b.ID, Content: "And why?"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreateTopic(ctx, model.DiscussionTopic{BookID: b.ID}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}

	topics, err := store.ListTopics(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) != 2 || topics[0].ID != first.ID {
		t.Errorf("expected oldest first, got %+v", topics)
	}

	tables := pub.tables()
	if tables[len(tables)-1] != model.TableTopics {
		t.Errorf("expected last change on topics, got %s", tables[len(tables)-1])
	}
}

func TestWrite_RollbackPublishesNothing(t *testing.T) {
	ctx := context.Background()
	store, pub := newTestStore(t)
	before := len(pub.tables())

	boom := errors.New("boom")
	err := store.write(ctx, func(tx *Tx) ([]model.Change, error) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO members (id, name, created_at) VALUES (?, ?, ?)", "m1", "Ghost", time.Now()); err != nil {
			return nil, err
		}
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(pub.tables()) != before {
		t.Error("expected no change published on rollback")
	}
	if _, err := store.GetMember(ctx, "m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected insert rolled back, got %v", err)
	}
}

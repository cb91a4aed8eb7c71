// Package repository persists club state in SQLite or PostgreSQL and
// announces every committed write as a model.Change.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

// ChangeChannel is the Postgres NOTIFY channel carrying change payloads.
const ChangeChannel = "clerb_changes"

// Store provides read/write access to the club state.
type Store interface {
	CreateMember(ctx context.Context, name string) (model.Member, error)
	GetMember(ctx context.Context, id string) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)

	CreateBook(ctx context.Context, b model.Book) (model.Book, error)
	GetBook(ctx context.Context, id string) (model.Book, error)
	// ListBooks returns books newest first; an empty status lists all.
	ListBooks(ctx context.Context, status model.BookStatus) ([]model.Book, error)
	// UpdateBookStatus moves a book through its lifecycle. Moving a book to
	// reading completes whichever book was being read.
	UpdateBookStatus(ctx context.Context, id string, status model.BookStatus) (model.Book, error)
	SetSpineColor(ctx context.Context, id, color string) error
	SetPageCount(ctx context.Context, id string, pages int) error
	DeleteBook(ctx context.Context, id string) error

	UpsertPreRating(ctx context.Context, bookID, memberID string, score float64) (model.Rating, error)
	SetPostRating(ctx context.Context, bookID, memberID string, score float64, reason string) (model.Rating, error)
	SetRatingVisibility(ctx context.Context, ratingID string, visible bool) (model.Rating, error)
	GetRating(ctx context.Context, ratingID string) (model.Rating, error)
	ListRatingsByBook(ctx context.Context, bookID string) ([]model.Rating, error)
	ListRatingsByMember(ctx context.Context, memberID string) ([]model.Rating, error)
	// ListVisibleRatings returns visible rows for the given books, or for all
	// books when bookIDs is empty.
	ListVisibleRatings(ctx context.Context, bookIDs []string) ([]model.Rating, error)

	CreateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error)
	UpdateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
	GetMeeting(ctx context.Context, id string) (model.Meeting, error)
	// ListMeetings returns meetings ordered by scheduled time ascending.
	ListMeetings(ctx context.Context) ([]model.Meeting, error)

	UpsertAttendance(ctx context.Context, meetingID, memberID string, status model.RSVPStatus) (model.Attendance, error)
	// ListAttendance returns RSVPs for one meeting, or all when meetingID is empty.
	ListAttendance(ctx context.Context, meetingID string) ([]model.Attendance, error)
	ListAttendanceByMember(ctx context.Context, memberID string) ([]model.Attendance, error)

	CreateTopic(ctx context.Context, t model.DiscussionTopic) (model.DiscussionTopic, error)
	// ListTopics returns a book's topics oldest first.
	ListTopics(ctx context.Context, bookID string) ([]model.DiscussionTopic, error)
}

// Publisher receives committed changes.
type Publisher interface {
	Publish(c model.Change)
}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db        *DB
	publisher Publisher
	now       func() time.Time

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore builds a store over an open, migrated database and starts the
// background shelf metrics updater.
func NewSQLStore(ctx context.Context, db *DB, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:                    db,
		now:                   func() time.Time { return time.Now().UTC() },
		metricsUpdateInterval: 15 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops background work. It does not close the database.
func (s *SQLStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *DB {
	return s.db
}

func (s *SQLStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		s.updateMetrics(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *SQLStore) updateMetrics(ctx context.Context) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM books GROUP BY status")
	if err != nil {
		metrics.RecordErrorByComponent("repository", "metrics_query")
		return
	}
	defer func() { _ = rows.Close() }()

	counts := map[model.BookStatus]int{
		model.StatusUpcoming:  0,
		model.StatusReading:   0,
		model.StatusCompleted: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return
		}
		counts[model.BookStatus(status)] = n
	}
	for status, n := range counts {
		metrics.UpdateBooksByStatus(string(status), n)
	}
}

// observe records operation latency; use as defer s.observe("op", time.Now()).
func (s *SQLStore) observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func newID() string {
	return uuid.NewString()
}

func (s *SQLStore) change(table string, op model.ChangeOp, rowID, bookID string) model.Change {
	return model.Change{
		ID:     newID(),
		Table:  table,
		Op:     op,
		RowID:  rowID,
		BookID: bookID,
		At:     s.now(),
	}
}

// notify queues the change on the backend's notification channel inside tx,
// so other processes see it only if the transaction commits.
func (s *SQLStore) notify(ctx context.Context, tx *Tx, changes ...model.Change) error {
	q := s.db.Dialect.NotifyQuery()
	if q == "" {
		return nil
	}
	for _, c := range changes {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode change: %w", err)
		}
		if _, err := tx.ExecContext(ctx, q, ChangeChannel, string(payload)); err != nil {
			return fmt.Errorf("notify change: %w", err)
		}
	}
	return nil
}

// publish hands committed changes to the in-process subscribers.
func (s *SQLStore) publish(changes ...model.Change) {
	if s.publisher == nil {
		return
	}
	for _, c := range changes {
		s.publisher.Publish(c)
	}
}

// write runs fn in a transaction, notifies the changes it returns and
// publishes them after commit.
func (s *SQLStore) write(ctx context.Context, fn func(tx *Tx) ([]model.Change, error)) error {
	var changes []model.Change
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		var err error
		changes, err = fn(tx)
		if err != nil {
			return err
		}
		return s.notify(ctx, tx, changes...)
	})
	if err != nil {
		return s.mapErr(err)
	}
	s.publish(changes...)
	return nil
}

func (s *SQLStore) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if s.db.Dialect.IsUniqueViolation(err) {
		logger.Named("repository").Debug(context.Background(), "unique violation", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

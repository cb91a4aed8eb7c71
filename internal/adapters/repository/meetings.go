package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/clerb/internal/domain/model"
)

const meetingColumns = "id, title, scheduled_at, location, notes, book_id, created_at"

func scanMeeting(row scanner) (model.Meeting, error) {
	var (
		m                       model.Meeting
		location, notes, bookID sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Title, &m.ScheduledAt, &location, &notes, &bookID, &m.CreatedAt); err != nil {
		return model.Meeting{}, err
	}
	m.Location = location.String
	m.Notes = notes.String
	m.BookID = bookID.String
	m.ScheduledAt = m.ScheduledAt.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func validMeeting(m model.Meeting) error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("meeting title: %w", ErrInvalid)
	}
	if m.ScheduledAt.IsZero() {
		return fmt.Errorf("meeting time: %w", ErrInvalid)
	}
	return nil
}

func (s *SQLStore) CreateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error) {
	defer s.observe("create_meeting", time.Now())

	if err := validMeeting(m); err != nil {
		return model.Meeting{}, err
	}
	m.ID = newID()
	m.Title = strings.TrimSpace(m.Title)
	m.ScheduledAt = m.ScheduledAt.UTC()
	m.CreatedAt = s.now()

	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO meetings ("+meetingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
			m.ID, m.Title, m.ScheduledAt, nullString(m.Location), nullString(m.Notes),
			nullString(m.BookID), m.CreatedAt)
		if err != nil {
			return nil, err
		}
		return []model.Change{s.change(model.TableMeetings, model.OpInsert, m.ID, m.BookID)}, nil
	})
	if err != nil {
		return model.Meeting{}, err
	}
	return m, nil
}

// UpdateMeeting overwrites the editable fields of an existing meeting.
func (s *SQLStore) UpdateMeeting(ctx context.Context, m model.Meeting) (model.Meeting, error) {
	defer s.observe("update_meeting", time.Now())

	if err := validMeeting(m); err != nil {
		return model.Meeting{}, err
	}

	var out model.Meeting
	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		res, err := tx.ExecContext(ctx,
			"UPDATE meetings SET title = ?, scheduled_at = ?, location = ?, notes = ?, book_id = ? WHERE id = ?",
			strings.TrimSpace(m.Title), m.ScheduledAt.UTC(), nullString(m.Location), nullString(m.Notes),
			nullString(m.BookID), m.ID)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("meeting %s: %w", m.ID, ErrNotFound)
		}
		out, err = s.getMeeting(ctx, tx, m.ID)
		if err != nil {
			return nil, err
		}
		return []model.Change{s.change(model.TableMeetings, model.OpUpdate, m.ID, out.BookID)}, nil
	})
	if err != nil {
		return model.Meeting{}, err
	}
	return out, nil
}

// DeleteMeeting removes a meeting together with its RSVPs.
func (s *SQLStore) DeleteMeeting(ctx context.Context, id string) error {
	defer s.observe("delete_meeting", time.Now())

	return s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE meeting_id = ?", id); err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM meetings WHERE id = ?", id)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("meeting %s: %w", id, ErrNotFound)
		}
		return []model.Change{s.change(model.TableMeetings, model.OpDelete, id, "")}, nil
	})
}

func (s *SQLStore) GetMeeting(ctx context.Context, id string) (model.Meeting, error) {
	defer s.observe("get_meeting", time.Now())
	return s.getMeeting(ctx, s.db, id)
}

func (s *SQLStore) getMeeting(ctx context.Context, q querier, id string) (model.Meeting, error) {
	row := q.QueryRowContext(ctx, "SELECT "+meetingColumns+" FROM meetings WHERE id = ?", id)
	m, err := scanMeeting(row)
	if err != nil {
		return model.Meeting{}, notFound(err, "meeting", id)
	}
	return m, nil
}

func (s *SQLStore) ListMeetings(ctx context.Context) ([]model.Meeting, error) {
	defer s.observe("list_meetings", time.Now())

	rows, err := s.db.QueryContext(ctx, "SELECT "+meetingColumns+" FROM meetings ORDER BY scheduled_at, id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const attendanceColumns = "id, meeting_id, member_id, status, created_at"

func scanAttendance(row scanner) (model.Attendance, error) {
	var (
		a      model.Attendance
		status string
	)
	if err := row.Scan(&a.ID, &a.MeetingID, &a.MemberID, &status, &a.CreatedAt); err != nil {
		return model.Attendance{}, err
	}
	a.Status = model.RSVPStatus(status)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// UpsertAttendance records or replaces a member's RSVP for a meeting.
func (s *SQLStore) UpsertAttendance(ctx context.Context, meetingID, memberID string, status model.RSVPStatus) (model.Attendance, error) {
	defer s.observe("upsert_attendance", time.Now())

	if !status.Valid() {
		return model.Attendance{}, fmt.Errorf("rsvp status %q: %w", status, ErrInvalid)
	}

	var out model.Attendance
	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO attendance ("+attendanceColumns+") VALUES (?, ?, ?, ?, ?) "+
				"ON CONFLICT (meeting_id, member_id) DO UPDATE SET status = excluded.status",
			newID(), meetingID, memberID, string(status), s.now())
		if err != nil {
			return nil, err
		}
		row := tx.QueryRowContext(ctx,
			"SELECT "+attendanceColumns+" FROM attendance WHERE meeting_id = ? AND member_id = ?",
			meetingID, memberID)
		out, err = scanAttendance(row)
		if err != nil {
			return nil, notFound(err, "attendance", meetingID+"/"+memberID)
		}
		return []model.Change{s.change(model.TableAttendance, model.OpUpdate, out.ID, "")}, nil
	})
	if err != nil {
		return model.Attendance{}, err
	}
	return out, nil
}

func (s *SQLStore) ListAttendance(ctx context.Context, meetingID string) ([]model.Attendance, error) {
	defer s.observe("list_attendance", time.Now())

	query := "SELECT " + attendanceColumns + " FROM attendance"
	var args []any
	if meetingID != "" {
		query += " WHERE meeting_id = ?"
		args = append(args, meetingID)
	}
	return s.listAttendance(ctx, query+" ORDER BY created_at, id", args...)
}

func (s *SQLStore) ListAttendanceByMember(ctx context.Context, memberID string) ([]model.Attendance, error) {
	defer s.observe("list_attendance_by_member", time.Now())
	return s.listAttendance(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE member_id = ? ORDER BY created_at, id", memberID)
}

func (s *SQLStore) listAttendance(ctx context.Context, query string, args ...any) ([]model.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

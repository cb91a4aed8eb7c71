package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/clerb/internal/domain/model"
)

const topicColumns = "id, book_id, member_id, content, is_spoiler, created_at"

// CreateTopic stores a discussion prompt. Every topic is treated as a spoiler.
func (s *SQLStore) CreateTopic(ctx context.Context, t model.DiscussionTopic) (model.DiscussionTopic, error) {
	defer s.observe("create_topic", time.Now())

	t.Content = strings.TrimSpace(t.Content)
	if t.Content == "" {
		return model.DiscussionTopic{}, fmt.Errorf("topic content: %w", ErrInvalid)
	}
	t.ID = newID()
	t.IsSpoiler = true
	t.CreatedAt = s.now()

	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO discussion_topics ("+topicColumns+") VALUES (?, ?, ?, ?, ?, ?)",
			t.ID, t.BookID, nullString(t.MemberID), t.Content, t.IsSpoiler, t.CreatedAt)
		if err != nil {
			return nil, err
		}
		return []model.Change{s.change(model.TableTopics, model.OpInsert, t.ID, t.BookID)}, nil
	})
	if err != nil {
		return model.DiscussionTopic{}, err
	}
	return t, nil
}

func (s *SQLStore) ListTopics(ctx context.Context, bookID string) ([]model.DiscussionTopic, error) {
	defer s.observe("list_topics", time.Now())

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+topicColumns+" FROM discussion_topics WHERE book_id = ? ORDER BY created_at, id", bookID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.DiscussionTopic
	for rows.Next() {
		var t model.DiscussionTopic
		var member sql.NullString
		if err := rows.Scan(&t.ID, &t.BookID, &member, &t.Content, &t.IsSpoiler, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.MemberID = member.String
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

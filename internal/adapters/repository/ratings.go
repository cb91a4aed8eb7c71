package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/okian/clerb/internal/domain/model"
)

const ratingColumns = "id, book_id, member_id, pre_rating, post_rating, rating_change_reason, is_visible, created_at, updated_at"

func scanRating(row scanner) (model.Rating, error) {
	var (
		r         model.Rating
		pre, post sql.NullFloat64
		reason    sql.NullString
	)
	err := row.Scan(&r.ID, &r.BookID, &r.MemberID, &pre, &post, &reason, &r.IsVisible, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Rating{}, err
	}
	r.PreRating = floatPtr(pre)
	r.PostRating = floatPtr(post)
	r.ChangeReason = reason.String
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func validScore(score float64) error {
	if math.IsNaN(score) || score < 0 || score > 10 {
		return fmt.Errorf("score %v outside 0-10: %w", score, ErrInvalid)
	}
	return nil
}

func (s *SQLStore) ratingFor(ctx context.Context, q querier, bookID, memberID string) (model.Rating, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+ratingColumns+" FROM ratings WHERE book_id = ? AND member_id = ?", bookID, memberID)
	r, err := scanRating(row)
	if err != nil {
		return model.Rating{}, notFound(err, "rating", bookID+"/"+memberID)
	}
	return r, nil
}

// UpsertPreRating records a member's pre-discussion score. A new or updated
// row is hidden until its owner reveals it again.
func (s *SQLStore) UpsertPreRating(ctx context.Context, bookID, memberID string, score float64) (model.Rating, error) {
	defer s.observe("upsert_pre_rating", time.Now())

	if err := validScore(score); err != nil {
		return model.Rating{}, err
	}

	var out model.Rating
	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		now := s.now()
		_, err := tx.ExecContext(ctx,
			"INSERT INTO ratings (id, book_id, member_id, pre_rating, is_visible, created_at, updated_at) "+
				"VALUES (?, ?, ?, ?, ?, ?, ?) "+
				"ON CONFLICT (book_id, member_id) DO UPDATE SET "+
				"pre_rating = excluded.pre_rating, is_visible = excluded.is_visible, updated_at = excluded.updated_at",
			newID(), bookID, memberID, score, false, now, now)
		if err != nil {
			return nil, err
		}
		out, err = s.ratingFor(ctx, tx, bookID, memberID)
		if err != nil {
			return nil, err
		}
		op := model.OpUpdate
		if out.CreatedAt.Equal(out.UpdatedAt) {
			op = model.OpInsert
		}
		return []model.Change{s.change(model.TableRatings, op, out.ID, bookID)}, nil
	})
	if err != nil {
		return model.Rating{}, err
	}
	return out, nil
}

// SetPostRating records the post-discussion score on an existing row.
func (s *SQLStore) SetPostRating(ctx context.Context, bookID, memberID string, score float64, reason string) (model.Rating, error) {
	defer s.observe("set_post_rating", time.Now())

	if err := validScore(score); err != nil {
		return model.Rating{}, err
	}

	var out model.Rating
	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		res, err := tx.ExecContext(ctx,
			"UPDATE ratings SET post_rating = ?, rating_change_reason = ?, updated_at = ? WHERE book_id = ? AND member_id = ?",
			score, nullString(reason), s.now(), bookID, memberID)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("rating %s/%s: %w", bookID, memberID, ErrNotFound)
		}
		out, err = s.ratingFor(ctx, tx, bookID, memberID)
		if err != nil {
			return nil, err
		}
		return []model.Change{s.change(model.TableRatings, model.OpUpdate, out.ID, bookID)}, nil
	})
	if err != nil {
		return model.Rating{}, err
	}
	return out, nil
}

func (s *SQLStore) SetRatingVisibility(ctx context.Context, ratingID string, visible bool) (model.Rating, error) {
	defer s.observe("set_rating_visibility", time.Now())

	var out model.Rating
	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		res, err := tx.ExecContext(ctx, "UPDATE ratings SET is_visible = ? WHERE id = ?", visible, ratingID)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("rating %s: %w", ratingID, ErrNotFound)
		}
		out, err = s.getRating(ctx, tx, ratingID)
		if err != nil {
			return nil, err
		}
		return []model.Change{s.change(model.TableRatings, model.OpUpdate, ratingID, out.BookID)}, nil
	})
	if err != nil {
		return model.Rating{}, err
	}
	return out, nil
}

func (s *SQLStore) GetRating(ctx context.Context, ratingID string) (model.Rating, error) {
	defer s.observe("get_rating", time.Now())
	return s.getRating(ctx, s.db, ratingID)
}

func (s *SQLStore) getRating(ctx context.Context, q querier, ratingID string) (model.Rating, error) {
	row := q.QueryRowContext(ctx, "SELECT "+ratingColumns+" FROM ratings WHERE id = ?", ratingID)
	r, err := scanRating(row)
	if err != nil {
		return model.Rating{}, notFound(err, "rating", ratingID)
	}
	return r, nil
}

func (s *SQLStore) ListRatingsByBook(ctx context.Context, bookID string) ([]model.Rating, error) {
	defer s.observe("list_ratings_by_book", time.Now())
	return s.listRatings(ctx, "SELECT "+ratingColumns+" FROM ratings WHERE book_id = ? ORDER BY created_at, id", bookID)
}

func (s *SQLStore) ListRatingsByMember(ctx context.Context, memberID string) ([]model.Rating, error) {
	defer s.observe("list_ratings_by_member", time.Now())
	return s.listRatings(ctx, "SELECT "+ratingColumns+" FROM ratings WHERE member_id = ? ORDER BY created_at, id", memberID)
}

func (s *SQLStore) ListVisibleRatings(ctx context.Context, bookIDs []string) ([]model.Rating, error) {
	defer s.observe("list_visible_ratings", time.Now())

	query := "SELECT " + ratingColumns + " FROM ratings WHERE is_visible = ?"
	args := []any{true}
	if len(bookIDs) > 0 {
		query += " AND book_id IN (" + placeholders(len(bookIDs)) + ")"
		for _, id := range bookIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY created_at, id"
	return s.listRatings(ctx, query, args...)
}

func (s *SQLStore) listRatings(ctx context.Context, query string, args ...any) ([]model.Rating, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Rating
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

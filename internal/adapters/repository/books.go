package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/clerb/internal/domain/model"
)

const bookColumns = "id, title, author, cover_url, thumbnail_url, spine_color, google_books_id, isbn, " +
	"description, status, page_count, completed_at, added_by, created_at"

func scanBook(row scanner) (model.Book, error) {
	var (
		b                                            model.Book
		author, cover, thumb, spine, gid, isbn, desc sql.NullString
		addedBy                                      sql.NullString
		status                                       string
		pages                                        sql.NullInt64
		completedAt                                  sql.NullTime
	)
	err := row.Scan(&b.ID, &b.Title, &author, &cover, &thumb, &spine, &gid, &isbn,
		&desc, &status, &pages, &completedAt, &addedBy, &b.CreatedAt)
	if err != nil {
		return model.Book{}, err
	}
	b.Author = author.String
	b.CoverURL = cover.String
	b.ThumbnailURL = thumb.String
	b.SpineColor = spine.String
	b.GoogleBooksID = gid.String
	b.ISBN = isbn.String
	b.Description = desc.String
	b.Status = model.BookStatus(status)
	b.PageCount = intPtr(pages)
	b.CompletedAt = timePtr(completedAt)
	b.AddedBy = addedBy.String
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

// CreateBook inserts a book. A missing status defaults to upcoming and a
// missing spine color to the default. Creating a book as reading completes
// the current one.
func (s *SQLStore) CreateBook(ctx context.Context, b model.Book) (model.Book, error) {
	defer s.observe("create_book", time.Now())

	b.ID = newID()
	b.CreatedAt = s.now()
	if b.Status == "" {
		b.Status = model.StatusUpcoming
	}
	if !b.Status.Valid() {
		return model.Book{}, fmt.Errorf("book status %q: %w", b.Status, ErrInvalid)
	}
	if b.SpineColor == "" {
		b.SpineColor = model.DefaultSpineColor
	}
	if b.Status == model.StatusCompleted && b.CompletedAt == nil {
		at := b.CreatedAt
		b.CompletedAt = &at
	}

	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		var changes []model.Change
		if b.Status == model.StatusReading {
			demoted, err := s.completeReading(ctx, tx, b.ID)
			if err != nil {
				return nil, err
			}
			changes = append(changes, demoted...)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO books ("+bookColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			b.ID, b.Title, nullString(b.Author), nullString(b.CoverURL), nullString(b.ThumbnailURL),
			nullString(b.SpineColor), nullString(b.GoogleBooksID), nullString(b.ISBN),
			nullString(b.Description), string(b.Status), nullInt(b.PageCount), nullTime(b.CompletedAt),
			nullString(b.AddedBy), b.CreatedAt)
		if err != nil {
			return nil, err
		}
		return append(changes, s.change(model.TableBooks, model.OpInsert, b.ID, b.ID)), nil
	})
	if err != nil {
		return model.Book{}, err
	}
	return b, nil
}

func (s *SQLStore) GetBook(ctx context.Context, id string) (model.Book, error) {
	defer s.observe("get_book", time.Now())
	return s.getBook(ctx, s.db, id)
}

func (s *SQLStore) getBook(ctx context.Context, q querier, id string) (model.Book, error) {
	row := q.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	b, err := scanBook(row)
	if err != nil {
		return model.Book{}, notFound(err, "book", id)
	}
	return b, nil
}

func (s *SQLStore) ListBooks(ctx context.Context, status model.BookStatus) ([]model.Book, error) {
	defer s.observe("list_books", time.Now())

	query := "SELECT " + bookColumns + " FROM books"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// completeReading moves any reading book other than keepID to completed.
func (s *SQLStore) completeReading(ctx context.Context, tx *Tx, keepID string) ([]model.Change, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM books WHERE status = ? AND id <> ?", string(model.StatusReading), keepID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	changes := make([]model.Change, 0, len(ids))
	for _, id := range ids {
		_, err := tx.ExecContext(ctx,
			"UPDATE books SET status = ?, completed_at = ? WHERE id = ?",
			string(model.StatusCompleted), s.now(), id)
		if err != nil {
			return nil, err
		}
		changes = append(changes, s.change(model.TableBooks, model.OpUpdate, id, id))
	}
	return changes, nil
}

func (s *SQLStore) UpdateBookStatus(ctx context.Context, id string, status model.BookStatus) (model.Book, error) {
	defer s.observe("update_book_status", time.Now())

	if !status.Valid() {
		return model.Book{}, fmt.Errorf("book status %q: %w", status, ErrInvalid)
	}

	var out model.Book
	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		current, err := s.getBook(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		var changes []model.Change
		if status == model.StatusReading {
			changes, err = s.completeReading(ctx, tx, id)
			if err != nil {
				return nil, err
			}
		}

		completedAt := current.CompletedAt
		switch {
		case status == model.StatusCompleted && current.Status != model.StatusCompleted:
			now := s.now()
			completedAt = &now
		case status != model.StatusCompleted:
			completedAt = nil
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE books SET status = ?, completed_at = ? WHERE id = ?",
			string(status), nullTime(completedAt), id)
		if err != nil {
			return nil, err
		}
		current.Status = status
		current.CompletedAt = completedAt
		out = current
		return append(changes, s.change(model.TableBooks, model.OpUpdate, id, id)), nil
	})
	if err != nil {
		return model.Book{}, err
	}
	return out, nil
}

func (s *SQLStore) SetSpineColor(ctx context.Context, id, color string) error {
	defer s.observe("set_spine_color", time.Now())
	return s.updateBookField(ctx, id, "spine_color", color)
}

func (s *SQLStore) SetPageCount(ctx context.Context, id string, pages int) error {
	defer s.observe("set_page_count", time.Now())
	return s.updateBookField(ctx, id, "page_count", pages)
}

// updateBookField sets one column; column is always a literal from this file.
func (s *SQLStore) updateBookField(ctx context.Context, id, column string, value any) error {
	return s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		res, err := tx.ExecContext(ctx, "UPDATE books SET "+column+" = ? WHERE id = ?", value, id)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
		}
		return []model.Change{s.change(model.TableBooks, model.OpUpdate, id, id)}, nil
	})
}

// DeleteBook removes a book with its ratings and topics. Meetings about the
// book keep existing without a book.
func (s *SQLStore) DeleteBook(ctx context.Context, id string) error {
	defer s.observe("delete_book", time.Now())

	return s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		for _, q := range []string{
			"DELETE FROM ratings WHERE book_id = ?",
			"DELETE FROM discussion_topics WHERE book_id = ?",
			"UPDATE meetings SET book_id = NULL WHERE book_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return nil, err
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
		}
		return []model.Change{s.change(model.TableBooks, model.OpDelete, id, id)}, nil
	})
}

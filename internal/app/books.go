package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/clerb/internal/adapters/catalog"
	"github.com/okian/clerb/internal/adapters/repository"
	"github.com/okian/clerb/internal/domain/cover"
	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/internal/domain/ranking"
	"github.com/okian/clerb/internal/domain/rating"
	"github.com/okian/clerb/internal/domain/spine"
	"github.com/okian/clerb/internal/domain/types"
	"github.com/okian/clerb/pkg/logger"
	"github.com/okian/clerb/pkg/metrics"
)

// Shelf is the club's bookshelf with its ranking.
type Shelf struct {
	// Books lists every book newest first.
	Books      []model.Book
	Reading    *model.Book
	Entries    []types.Entry
	HallOfFame types.HallOfFame
}

// BookDetail is everything the book page shows.
type BookDetail struct {
	Book model.Book
	// Ratings holds the visible rows plus the viewer's own hidden row.
	Ratings   []model.Rating
	Mine      *model.Rating
	Breakdown rating.Breakdown
	Topics    []model.DiscussionTopic
	Covers    []string
	TextColor string
}

// NewBook is the input for adding a book by hand.
type NewBook struct {
	Title         string
	Author        string
	CoverURL      string
	ThumbnailURL  string
	GoogleBooksID string
	ISBN          string
	Description   string
	Status        model.BookStatus
	PageCount     *int
}

// Shelf loads all books and ranks the completed ones by visible average.
func (s *Service) Shelf(ctx context.Context) (Shelf, error) {
	books, err := s.store.ListBooks(ctx, "")
	if err != nil {
		return Shelf{}, fmt.Errorf("list books: %w", err)
	}
	visible, err := s.store.ListVisibleRatings(ctx, nil)
	if err != nil {
		return Shelf{}, fmt.Errorf("list visible ratings: %w", err)
	}

	scored := ranking.Score(books, rating.ByBook(visible))
	out := Shelf{
		Books:      books,
		Entries:    ranking.Entries(scored),
		HallOfFame: ranking.HallOfFame(scored),
	}
	for i := range books {
		if books[i].Status == model.StatusReading {
			b := books[i]
			out.Reading = &b
			break
		}
	}
	return out, nil
}

// ListBooks returns books newest first, optionally filtered by status.
func (s *Service) ListBooks(ctx context.Context, status model.BookStatus) ([]model.Book, error) {
	if status != "" && !status.Valid() {
		return nil, invalid(fmt.Sprintf("book status %q", status))
	}
	return s.store.ListBooks(ctx, status)
}

// AddBook stores a book added by memberID and schedules its spine color.
func (s *Service) AddBook(ctx context.Context, memberID string, in NewBook) (model.Book, error) {
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		return model.Book{}, fmt.Errorf("member: %w", err)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Book{}, invalid("book title")
	}

	b, err := s.store.CreateBook(ctx, model.Book{
		Title:         title,
		Author:        strings.TrimSpace(in.Author),
		CoverURL:      in.CoverURL,
		ThumbnailURL:  in.ThumbnailURL,
		GoogleBooksID: in.GoogleBooksID,
		ISBN:          in.ISBN,
		Description:   in.Description,
		Status:        in.Status,
		PageCount:     in.PageCount,
		AddedBy:       memberID,
	})
	if err != nil {
		return model.Book{}, fmt.Errorf("create book: %w", err)
	}
	metrics.RecordBookAdded()
	s.logger.Info(ctx, "book added",
		logger.String("book_id", b.ID),
		logger.String("title", b.Title),
		logger.String("member_id", memberID),
	)

	s.enqueueColor(ctx, b)
	return b, nil
}

// AddFromCatalog adds the catalog volume volumeID. A missing page count is
// filled from the edition record of the volume's ISBN when available.
func (s *Service) AddFromCatalog(ctx context.Context, memberID, volumeID string, status model.BookStatus) (model.Book, error) {
	if s.catalog == nil {
		return model.Book{}, ErrCatalogDisabled
	}
	v, err := s.catalog.Volume(ctx, volumeID)
	if err != nil {
		return model.Book{}, fmt.Errorf("catalog volume %s: %w", volumeID, err)
	}
	if v == nil {
		return model.Book{}, fmt.Errorf("catalog volume %s: %w", volumeID, repository.ErrNotFound)
	}

	in := NewBook{
		Title:         v.VolumeInfo.Title,
		Author:        v.Author(),
		CoverURL:      catalog.CoverURL(*v),
		ThumbnailURL:  catalog.ThumbnailURL(*v),
		GoogleBooksID: v.ID,
		ISBN:          v.ISBN(),
		Description:   v.VolumeInfo.Description,
		Status:        status,
		PageCount:     v.Pages(),
	}
	if in.PageCount == nil {
		in.PageCount = s.editionPages(ctx, in.ISBN)
	}
	return s.AddBook(ctx, memberID, in)
}

func (s *Service) editionPages(ctx context.Context, isbn string) *int {
	if s.editions == nil || isbn == "" {
		return nil
	}
	e, err := s.editions.EditionByISBN(ctx, isbn)
	if err != nil {
		s.logger.Warn(ctx, "edition lookup failed", logger.String("isbn", isbn), logger.Error(err))
		return nil
	}
	if e == nil {
		return nil
	}
	return e.Pages()
}

// SearchCatalog searches the catalog for q.
func (s *Service) SearchCatalog(ctx context.Context, q string) ([]catalog.Volume, error) {
	if s.catalog == nil {
		return nil, ErrCatalogDisabled
	}
	return s.catalog.Search(ctx, q)
}

// BookDetail loads a book page as seen by viewerID. viewerID may be empty.
func (s *Service) BookDetail(ctx context.Context, viewerID, bookID string) (BookDetail, error) {
	var (
		out     BookDetail
		ratings []model.Rating
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.store.GetBook(gctx, bookID)
		if err != nil {
			return err
		}
		out.Book = b
		return nil
	})
	g.Go(func() error {
		rs, err := s.store.ListRatingsByBook(gctx, bookID)
		if err != nil {
			return fmt.Errorf("list ratings: %w", err)
		}
		ratings = rs
		return nil
	})
	g.Go(func() error {
		ts, err := s.store.ListTopics(gctx, bookID)
		if err != nil {
			return fmt.Errorf("list topics: %w", err)
		}
		out.Topics = ts
		return nil
	})
	if err := g.Wait(); err != nil {
		return BookDetail{}, err
	}

	out.Breakdown = rating.BreakdownOf(ratings)
	for i := range ratings {
		r := ratings[i]
		mine := viewerID != "" && r.MemberID == viewerID
		if mine {
			out.Mine = &r
		}
		if r.IsVisible || mine {
			out.Ratings = append(out.Ratings, r)
		}
	}

	out.Covers = cover.Candidates(out.Book)
	out.TextColor = spine.ContrastColor(out.Book.SpineColor)
	if out.Book.Description == "" {
		out.Book.Description = s.catalogDescription(ctx, out.Book.GoogleBooksID)
	}
	if out.Book.PageCount == nil {
		out.Book.PageCount = s.backfillPages(ctx, out.Book)
	}
	return out, nil
}

// backfillPages looks up a missing page count by ISBN and stores it so
// member stats can count the book.
func (s *Service) backfillPages(ctx context.Context, b model.Book) *int {
	pages := s.editionPages(ctx, b.ISBN)
	if pages == nil {
		return nil
	}
	if err := s.store.SetPageCount(ctx, b.ID, *pages); err != nil {
		s.logger.Warn(ctx, "page count backfill failed",
			logger.String("book_id", b.ID), logger.Error(err))
		return nil
	}
	return pages
}

func (s *Service) catalogDescription(ctx context.Context, volumeID string) string {
	if s.catalog == nil || volumeID == "" {
		return ""
	}
	v, err := s.catalog.Volume(ctx, volumeID)
	if err != nil {
		s.logger.Warn(ctx, "description lookup failed",
			logger.String("volume_id", volumeID), logger.Error(err))
		return ""
	}
	if v == nil {
		return ""
	}
	return v.VolumeInfo.Description
}

// Covers returns the ordered image URLs to try for a book's cover.
func (s *Service) Covers(ctx context.Context, bookID string) ([]string, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return cover.Candidates(b), nil
}

// UpdateBookStatus moves a book through reading and completion.
func (s *Service) UpdateBookStatus(ctx context.Context, bookID string, status model.BookStatus) (model.Book, error) {
	b, err := s.store.UpdateBookStatus(ctx, bookID, status)
	if err != nil {
		return model.Book{}, err
	}
	s.logger.Info(ctx, "book status changed",
		logger.String("book_id", b.ID), logger.String("status", string(b.Status)))
	return b, nil
}

// DeleteBook removes a book with its ratings and topics.
func (s *Service) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return err
	}
	s.logger.Info(ctx, "book deleted", logger.String("book_id", bookID))
	return nil
}

package api

import (
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/clerb/internal/app"
	"github.com/okian/clerb/internal/domain/model"
)

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_books"
	status := model.BookStatus(r.URL.Query().Get("status"))
	bs, err := s.deps.ListBooks(r.Context(), status)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toBooks(bs))
}

// createBook handles POST /api/v1/books. A volume_id adds the book from
// the catalog; otherwise the fields describe the book.
func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_book"
	member, err := memberID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req createBookRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	var b model.Book
	if req.VolumeID != "" {
		b, err = s.deps.AddFromCatalog(r.Context(), member, req.VolumeID, model.BookStatus(req.Status))
	} else {
		b, err = s.deps.AddBook(r.Context(), member, service.NewBook{
			Title:         req.Title,
			Author:        req.Author,
			CoverURL:      req.CoverURL,
			ThumbnailURL:  req.ThumbnailURL,
			GoogleBooksID: req.GoogleBooksID,
			ISBN:          req.ISBN,
			Description:   req.Description,
			Status:        model.BookStatus(req.Status),
			PageCount:     req.PageCount,
		})
	}
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toBook(b))
}

// getBook handles GET /api/v1/books/{id}. Spoiler topics are masked unless
// reveal=true.
func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_book"
	d, err := s.deps.BookDetail(r.Context(), viewerID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toBookDetail(d, reveal(r)))
}

func (s *Server) updateBookStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_book_status"
	var req statusRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.deps.UpdateBookStatus(r.Context(), r.PathValue("id"), model.BookStatus(req.Status))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toBook(b))
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_book"
	if err := s.deps.DeleteBook(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bookCovers(w http.ResponseWriter, r *http.Request) {
	const op = "api.book_covers"
	covers, err := s.deps.Covers(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	if covers == nil {
		covers = []string{}
	}
	writeJSON(w, http.StatusOK, covers)
}

func (s *Server) listTopics(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_topics"
	ts, err := s.deps.Topics(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toTopics(ts, reveal(r)))
}

func (s *Server) createTopic(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_topic"
	var req topicRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.deps.AddTopic(r.Context(), viewerID(r), r.PathValue("id"), req.Content)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toTopics([]model.DiscussionTopic{t}, true)[0])
}

func reveal(r *http.Request) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("reveal")))
	return err == nil && v
}

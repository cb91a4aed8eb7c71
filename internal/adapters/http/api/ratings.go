package api

import (
	"net/http"
)

// listRatings handles GET /api/v1/books/{id}/ratings: visible rows plus the
// caller's own.
func (s *Server) listRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_ratings"
	rs, err := s.deps.BookRatings(r.Context(), viewerID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRatings(rs))
}

func (s *Server) preRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.pre_rating"
	member, err := memberID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req scoreRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rt, err := s.deps.SubmitPreRating(r.Context(), member, r.PathValue("id"), *req.Score)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRating(rt))
}

func (s *Server) postRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rating"
	member, err := memberID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req scoreRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rt, err := s.deps.SubmitPostRating(r.Context(), member, r.PathValue("id"), *req.Score, req.Reason)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRating(rt))
}

func (s *Server) ratingVisibility(w http.ResponseWriter, r *http.Request) {
	const op = "api.rating_visibility"
	member, err := memberID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req visibilityRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rt, err := s.deps.SetRatingVisibility(r.Context(), member, r.PathValue("id"), *req.Visible)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toRating(rt))
}

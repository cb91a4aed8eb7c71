package api

import (
	"net/http"
)

// shelf handles GET /api/v1/shelf: every book plus the ranking of the
// completed ones and the hall of fame and shame.
func (s *Server) shelf(w http.ResponseWriter, r *http.Request) {
	const op = "api.shelf"
	sh, err := s.deps.Shelf(r.Context())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toShelf(sh))
}

// summary handles GET /api/v1/summary.
func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	sum, err := s.deps.Summary(r.Context())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toSummary(sum))
}

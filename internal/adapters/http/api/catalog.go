package api

import (
	"net/http"
	"strings"
)

// searchCatalog handles GET /api/v1/catalog/search?q=.
func (s *Server) searchCatalog(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_catalog"
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, []volumeView{})
		return
	}
	vs, err := s.deps.SearchCatalog(r.Context(), q)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toVolumes(vs))
}

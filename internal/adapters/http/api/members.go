package api

import (
	"net/http"
)

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_members"
	ms, err := s.deps.ListMembers(r.Context())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	out := make([]memberView, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMember(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_member"
	var req createMemberRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.deps.CreateMember(r.Context(), req.Name)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toMember(m))
}

func (s *Server) memberStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.member_stats"
	st, err := s.deps.MemberStats(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toMemberStats(st))
}

func (s *Server) allMemberStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.all_member_stats"
	all, err := s.deps.AllMemberStats(r.Context())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	out := make([]memberStatsView, 0, len(all))
	for _, st := range all {
		out = append(out, toMemberStats(st))
	}
	writeJSON(w, http.StatusOK, out)
}

package api

import (
	"net/http"

	service "github.com/okian/clerb/internal/app"
	"github.com/okian/clerb/internal/domain/model"
)

// listMeetings handles GET /api/v1/meetings?when=upcoming|past.
func (s *Server) listMeetings(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_meetings"
	ms, err := s.deps.Meetings(r.Context(), service.MeetingWindow(r.URL.Query().Get("when")))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	out := make([]meetingView, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMeeting(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createMeeting(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_meeting"
	var req meetingRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.deps.CreateMeeting(r.Context(), req.meeting(""))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toMeeting(m))
}

func (s *Server) updateMeeting(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_meeting"
	var req meetingRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.deps.UpdateMeeting(r.Context(), req.meeting(r.PathValue("id")))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toMeeting(m))
}

func (s *Server) deleteMeeting(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_meeting"
	if err := s.deps.DeleteMeeting(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) rsvp(w http.ResponseWriter, r *http.Request) {
	const op = "api.rsvp"
	member, err := memberID(op, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req rsvpRequest
	if err := decode(op, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.deps.RSVP(r.Context(), member, r.PathValue("id"), model.RSVPStatus(req.Status))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toAttendance(a))
}

func (s *Server) attendance(w http.ResponseWriter, r *http.Request) {
	const op = "api.attendance"
	as, err := s.deps.Attendance(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	out := make([]attendanceView, 0, len(as))
	for _, a := range as {
		out = append(out, toAttendance(a))
	}
	writeJSON(w, http.StatusOK, out)
}

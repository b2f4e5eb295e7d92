package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/schema"
)

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.SubmissionFilter{
		FacilityName:  q.Get("facility"),
		OverallStatus: model.OverallStatus(q.Get("status")),
	}
	if filter.OverallStatus != "" && !filter.OverallStatus.IsValid() {
		badRequest(w, "status must be one of compliant, non-compliant, needs-attention")
		return
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				badRequest(w, name+" must be a non-negative integer")
				return
			}
			*dst = n
		}
	}

	subs, err := s.submissions.ListSubmissions(r.Context(), userOf(r).ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submissions.GetSubmission(r.Context(), userOf(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleUpdateSubmissionData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		badRequest(w, "could not read body")
		return
	}
	data, err := schema.DecodeStrict(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.submissions.UpdateSubmissionData(r.Context(), userOf(r).ID, chi.URLParam(r, "id"), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

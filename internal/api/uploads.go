package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/review"
)

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*review.Session, bool) {
	sess, err := s.sessions.Get(userOf(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

// readPDF reads the multipart "file" part, rejecting anything that is not
// a PDF.
func (s *Server) readPDF(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "expecting multipart form with a file part")
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	if err != nil {
		badRequest(w, "could not read upload")
		return "", nil, false
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "file too large", Kind: "bad_request"})
		return "", nil, false
	}
	if http.DetectContentType(data) != "application/pdf" {
		badRequest(w, "only PDF files supported")
		return "", nil, false
	}
	return hdr.Filename, data, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}

func index(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		badRequest(w, "index must be an integer")
		return 0, false
	}
	return i, true
}

// pathKey returns the unescaped value of a path parameter. chi matches on
// the raw path, so a key sent as "Date%2FTime" arrives still escaped.
func pathKey(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return "", false
	}
	return v, true
}

func editor(r *http.Request, t model.EditType) review.Editor {
	return review.Editor{Name: userOf(r).Editor(), Type: t}
}

// respond writes the session view, or the error if err is set.
func respond(w http.ResponseWriter, r *http.Request, sess *review.Session, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	name, data, ok := s.readPDF(w, r)
	if !ok {
		return
	}
	user := userOf(r)
	sess := s.sessions.Create(user.ID)
	if err := sess.LoadFile(r.Context(), name, data); err != nil {
		_ = s.sessions.Remove(user.ID, sess.ID())
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleReplaceFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	name, data, ok := s.readPDF(w, r)
	if !ok {
		return
	}
	respond(w, r, sess, sess.LoadFile(r.Context(), name, data))
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Remove(userOf(r).ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	page, ok := sess.Thumbnail()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no thumbnail", Kind: "not_found"})
		return
	}
	w.Header().Set("Content-Type", page.MediaType)
	_, _ = w.Write(page.Data)
}

func (s *Server) handleSetHints(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var h model.FieldHints
	if !decode(w, r, &h) {
		return
	}
	respond(w, r, sess, sess.SetHints(h))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	// A dropped connection does not cancel the extraction; Back or DELETE
	// abandons it.
	respond(w, r, sess, sess.Submit(context.WithoutCancel(r.Context())))
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		respond(w, r, sess, sess.Back())
	}
}

type checklistRequest struct {
	review.ChecklistPatch
	EditType model.EditType `json:"editType,omitempty"`
}

type addChecklistRequest struct {
	model.ChecklistItem
	EditType model.EditType `json:"editType,omitempty"`
}

func (s *Server) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req addChecklistRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, sess, sess.AddChecklistItem(req.ChecklistItem, editor(r, req.EditType)))
}

func (s *Server) handleUpdateChecklistItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	i, ok := index(w, r)
	if !ok {
		return
	}
	var req checklistRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, sess, sess.UpdateChecklistItem(i, req.ChecklistPatch, editor(r, req.EditType)))
}

func (s *Server) handleRemoveChecklistItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if i, ok := index(w, r); ok {
		respond(w, r, sess, sess.RemoveChecklistItem(i))
	}
}

type actionRequest struct {
	review.ActionPatch
	EditType model.EditType `json:"editType,omitempty"`
}

type addActionRequest struct {
	model.CorrectiveAction
	EditType model.EditType `json:"editType,omitempty"`
}

func (s *Server) handleAddAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req addActionRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, sess, sess.AddCorrectiveAction(req.CorrectiveAction, editor(r, req.EditType)))
}

func (s *Server) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	i, ok := index(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, sess, sess.UpdateCorrectiveAction(i, req.ActionPatch, editor(r, req.EditType)))
}

func (s *Server) handleRemoveAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if i, ok := index(w, r); ok {
		respond(w, r, sess, sess.RemoveCorrectiveAction(i))
	}
}

type valueRequest struct {
	Value    string         `json:"value"`
	EditType model.EditType `json:"editType,omitempty"`
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, sess, sess.UpdateField(chi.URLParam(r, "field"), req.Value, editor(r, req.EditType)))
}

func (s *Server) handleResolveDeadletter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	key, ok := pathKey(w, r, "key")
	if !ok {
		return
	}
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, sess, sess.ResolveDeadletter(key, req.Value, editor(r, req.EditType)))
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, sess, sess.AddSection(req.Name))
}

func (s *Server) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		respond(w, r, sess, sess.RemoveSection(r.URL.Query().Get("name")))
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := sess.Save(context.WithoutCancel(r.Context()), userOf(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := sess.Snapshot()
	writeJSON(w, http.StatusCreated, map[string]string{
		"submissionId": id,
		"pdfUrl":       v.PDFURL,
	})
}

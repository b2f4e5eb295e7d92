package review

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/schema"
	"github.com/sells-group/inspection-review/internal/store"
)

// Save validates the edited record strictly and, only if it passes,
// uploads the PDF, creates the submission and attaches the PDF key. A
// second Save while one is running fails with ErrSaveInFlight. On any
// failure the session stays in post-review with its edits intact; steps
// that already succeeded are not repeated on retry.
func (s *Session) Save(ctx context.Context, owner string) (string, error) {
	if err := s.lock(StatePostReview); err != nil {
		return "", err
	}
	if s.saving {
		s.mu.Unlock()
		return "", ErrSaveInFlight
	}
	if strings.TrimSpace(owner) == "" {
		owner = s.owner
	}
	data := s.data.Clone()
	if err := schema.ValidateStrict(data); err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return "", err
	}
	s.saving = true
	s.lastErr = nil
	pdf, fileName := s.pdf, s.fileName
	key, id := s.pdfKey, s.submissionID
	s.mu.Unlock()

	id, err := s.persist(ctx, owner, pdf, fileName, key, id, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.lastErr = err
		zap.L().Warn("review: save failed", zap.String("session", s.id), zap.Error(err))
		return "", err
	}
	s.state = StateSaved
	zap.L().Info("review: saved", zap.String("session", s.id), zap.String("submission_id", id))
	return id, nil
}

// persist runs the save steps without holding the lock. Progress is
// recorded on the session as each step completes.
func (s *Session) persist(ctx context.Context, owner string, pdf []byte, fileName, key, id string, data *model.InspectionData) (string, error) {
	deps := s.wf.deps

	if key == "" && len(pdf) > 0 {
		obj, err := deps.Blobs.UploadPDF(ctx, pdf, "")
		if err != nil {
			return "", &store.PersistenceError{Kind: store.KindInternal, Op: "upload pdf", Err: err}
		}
		key = obj.Key
		s.mu.Lock()
		s.pdfKey, s.pdfURL = obj.Key, obj.URL
		s.mu.Unlock()
	}

	if id == "" {
		var err error
		id, err = deps.Gateway.CreateSubmission(ctx, model.NewSubmission{
			OwnerID:  owner,
			FileName: fileName,
			FormType: s.wf.opts.FormType,
			Data:     data,
		})
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.submissionID = id
		s.mu.Unlock()
	} else if _, err := deps.Gateway.UpdateSubmissionData(ctx, owner, id, data); err != nil {
		// Created on an earlier attempt; push the current edits.
		return "", err
	}

	if key != "" {
		if _, err := deps.Gateway.AttachPDF(ctx, owner, id, key); err != nil {
			return "", err
		}
	}
	return id, nil
}

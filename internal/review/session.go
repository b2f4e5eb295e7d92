package review

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/raster"
)

// State is a Session's position in the review flow.
type State string

const (
	StatePreReview  State = "pre-review"
	StateProcessing State = "processing"
	StatePostReview State = "post-review"
	StateSaved      State = "saved"
)

// Session is one upload flow. All methods are safe for concurrent use;
// long-running calls release the lock while they wait and re-check that
// the session has not moved on before committing.
type Session struct {
	wf      *Workflow
	id      string
	owner   string
	created time.Time

	// loads guards file loads, runs guards extraction calls.
	loads raster.Generation
	runs  raster.Generation

	mu        sync.Mutex
	state     State
	closed    bool
	touched   time.Time
	loading   bool
	fileName  string
	pdf       []byte
	pages     []raster.Page
	warnings  []string
	thumbnail *raster.Page
	prefill   *model.PrefillResult
	hints     model.FieldHints
	userHints bool
	data      *model.InspectionData
	sections  []string
	lastErr   error

	saving       bool
	pdfKey       string
	pdfURL       string
	submissionID string
}

func newSession(wf *Workflow, owner string) *Session {
	now := wf.deps.Now()
	return &Session{
		wf:      wf,
		id:      uuid.New().String(),
		owner:   owner,
		created: now,
		touched: now,
		state:   StatePreReview,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Owner returns the user the session belongs to.
func (s *Session) Owner() string { return s.owner }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// lock acquires the session lock and fails if the session is closed or
// not in one of states.
func (s *Session) lock(states ...State) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if len(states) > 0 && !slices.Contains(states, s.state) {
		s.mu.Unlock()
		return ErrInvalidState
	}
	s.touched = s.wf.deps.Now()
	return nil
}

// LoadFile replaces the session's document. Rendering, form-field prefill
// and the thumbnail run concurrently. If another LoadFile starts before
// this one finishes, this one's results are dropped and ErrSuperseded is
// returned. Prefilled hints are applied only if the user has not typed any.
func (s *Session) LoadFile(ctx context.Context, name string, pdf []byte) error {
	if err := s.lock(StatePreReview); err != nil {
		return err
	}
	ticket := s.loads.Begin()
	s.loading = true
	s.fileName = name
	s.pdf = nil
	s.pages = nil
	s.warnings = nil
	s.thumbnail = nil
	s.prefill = nil
	s.lastErr = nil
	s.pdfKey, s.pdfURL, s.submissionID = "", "", ""
	s.mu.Unlock()

	var (
		pages    []raster.Page
		warnings []error
		thumb    *raster.Page
		pre      model.PrefillResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pages, warnings, err = s.wf.deps.Rasterizer.RenderAll(gctx, pdf, s.wf.opts.Scale, s.wf.opts.PagePolicy)
		return err
	})
	g.Go(func() error {
		pre = s.wf.deps.Prefiller.Extract(pdf)
		return nil
	})
	g.Go(func() error {
		// Best effort: a missing preview never fails the load.
		if p, err := s.wf.deps.Rasterizer.Thumbnail(gctx, pdf); err == nil {
			thumb = &p
		}
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.loads.Current(ticket) || s.state != StatePreReview {
		zap.L().Debug("review: dropping stale load", zap.String("session", s.id), zap.String("file", name))
		return ErrSuperseded
	}
	s.loading = false
	if err != nil {
		s.lastErr = err
		zap.L().Warn("review: document unreadable", zap.String("session", s.id), zap.String("file", name), zap.Error(err))
		return err
	}

	s.pdf = pdf
	s.pages = pages
	s.thumbnail = thumb
	s.prefill = &pre
	for _, w := range warnings {
		s.warnings = append(s.warnings, w.Error())
	}
	if !s.userHints {
		s.hints = pre.Hints
	}
	zap.L().Info("review: document loaded",
		zap.String("session", s.id),
		zap.String("file", name),
		zap.Int("pages", len(pages)),
		zap.Int("skipped_pages", len(warnings)),
		zap.String("acroform", string(pre.Status())),
	)
	return nil
}

// SetHints records hints typed by the user. Once set, prefilled hints from
// later loads are informational only. Clearing every hint re-enables
// auto-apply.
func (s *Session) SetHints(h model.FieldHints) error {
	if err := s.lock(StatePreReview); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.hints = trimHints(h)
	s.userHints = !s.hints.IsEmpty()
	return nil
}

func trimHints(h model.FieldHints) model.FieldHints {
	for _, k := range model.HintKeys {
		h.Set(k, strings.TrimSpace(h.Get(k)))
	}
	return h
}

// Submit runs extraction on the loaded pages. Only one extraction can be
// outstanding because a session leaves pre-review for the duration. On
// failure the session returns to pre-review with the error kept; on
// success it enters post-review with overallStatus re-derived from the
// returned checklist. If Back or Close is called while the call is in
// flight, its result is discarded and ErrSuperseded is returned.
func (s *Session) Submit(ctx context.Context) error {
	if err := s.lock(StatePreReview); err != nil {
		return err
	}
	if s.loading || len(s.pages) == 0 {
		s.mu.Unlock()
		return ErrNoDocument
	}
	ticket := s.runs.Begin()
	s.state = StateProcessing
	s.lastErr = nil
	pages := s.pages
	hints := s.hints
	s.mu.Unlock()

	if s.wf.opts.ExtractionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.wf.opts.ExtractionTimeout)
		defer cancel()
	}
	started := time.Now()
	d, err := s.wf.deps.Extractor.Extract(ctx, pages, hints)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.runs.Current(ticket) || s.state != StateProcessing {
		zap.L().Info("review: discarding abandoned extraction", zap.String("session", s.id))
		return ErrSuperseded
	}
	if err != nil {
		s.state = StatePreReview
		s.lastErr = err
		zap.L().Warn("review: extraction failed", zap.String("session", s.id), zap.Error(err))
		return err
	}

	d.Normalize()
	s.data = d
	s.sections = sectionsOf(d.ChecklistItems)
	s.state = StatePostReview
	zap.L().Info("review: extraction complete",
		zap.String("session", s.id),
		zap.String("overall_status", string(d.OverallStatus)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// Back returns to pre-review, discarding extracted data and abandoning an
// in-flight extraction. The loaded document and hints are kept.
func (s *Session) Back() error {
	if err := s.lock(StateProcessing, StatePostReview); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if s.saving {
		return ErrSaveInFlight
	}
	s.runs.Begin()
	s.state = StatePreReview
	s.data = nil
	s.sections = nil
	s.lastErr = nil
	return nil
}

// Close abandons the session. Pending calls drop their results.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.loads.Begin()
	s.runs.Begin()
	s.pdf = nil
	s.pages = nil
	s.data = nil
}

// idleSince returns the last time the session was used.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Thumbnail returns the preview image of the first page, if one rendered.
func (s *Session) Thumbnail() (raster.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.thumbnail == nil {
		return raster.Page{}, false
	}
	return *s.thumbnail, true
}

// View is a read-only copy of a session for display.
type View struct {
	ID             string                `json:"id"`
	State          State                 `json:"state"`
	FileName       string                `json:"fileName,omitempty"`
	Loading        bool                  `json:"loading"`
	PageCount      int                   `json:"pageCount"`
	PageWarnings   []string              `json:"pageWarnings,omitempty"`
	HasThumbnail   bool                  `json:"hasThumbnail"`
	Hints          model.FieldHints      `json:"hints"`
	UserHints      bool                  `json:"userHints"`
	Prefill        *model.PrefillResult  `json:"prefill,omitempty"`
	AcroFormStatus model.AcroFormStatus  `json:"acroFormStatus"`
	Data           *model.InspectionData `json:"data,omitempty"`
	Sections       []string              `json:"sections,omitempty"`
	Saving         bool                  `json:"saving"`
	SubmissionID   string                `json:"submissionId,omitempty"`
	PDFURL         string                `json:"pdfUrl,omitempty"`
	Error          string                `json:"error,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// Snapshot returns a copy of the session safe to hand to callers.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:             s.id,
		State:          s.state,
		FileName:       s.fileName,
		Loading:        s.loading,
		PageCount:      len(s.pages),
		PageWarnings:   slices.Clone(s.warnings),
		HasThumbnail:   s.thumbnail != nil,
		Hints:          s.hints,
		UserHints:      s.userHints,
		AcroFormStatus: model.AcroFormPending,
		Data:           s.data.Clone(),
		Sections:       slices.Clone(s.sections),
		Saving:         s.saving,
		SubmissionID:   s.submissionID,
		PDFURL:         s.pdfURL,
		CreatedAt:      s.created,
	}
	if s.prefill != nil {
		p := *s.prefill
		v.Prefill = &p
		v.AcroFormStatus = p.Status()
	}
	if s.lastErr != nil {
		v.Error = s.lastErr.Error()
	}
	return v
}

// Err returns the error from the last failed load, extraction or save.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

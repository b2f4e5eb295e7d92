// Package review drives one uploaded inspection form from file selection
// through extraction and human correction to a saved submission.
//
// A Session moves through four states:
//
//	pre-review  --Submit-->          processing
//	processing  --extract ok-->      post-review
//	processing  --extract failed-->  pre-review (error kept)
//	post-review --Back-->            pre-review (data discarded)
//	post-review --Save ok-->         saved
//
// Edits in post-review replace the whole record with a patched copy and
// re-derive overallStatus before returning.
package review

import (
	"context"
	"time"

	"github.com/sells-group/inspection-review/internal/blob"
	"github.com/sells-group/inspection-review/internal/extract"
	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/raster"
)

// Rasterizer renders uploaded PDFs. *raster.Renderer satisfies it.
type Rasterizer interface {
	RenderAll(ctx context.Context, pdf []byte, scale float64, policy raster.PagePolicy) ([]raster.Page, []error, error)
	Thumbnail(ctx context.Context, pdf []byte) (raster.Page, error)
}

// Prefiller reads hints from a PDF's form fields. *prefill.Matcher
// satisfies it.
type Prefiller interface {
	Extract(pdf []byte) model.PrefillResult
}

// Gateway persists finished sessions. *store.Gateway satisfies it.
type Gateway interface {
	CreateSubmission(ctx context.Context, in model.NewSubmission) (string, error)
	UpdateSubmissionData(ctx context.Context, owner, id string, data *model.InspectionData) (*model.Submission, error)
	AttachPDF(ctx context.Context, owner, id, key string) (*model.Submission, error)
}

// Deps are the collaborators of a Workflow.
type Deps struct {
	Rasterizer Rasterizer
	Prefiller  Prefiller
	Extractor  extract.Extractor
	Gateway    Gateway
	Blobs      blob.Store
	// Now defaults to time.Now.
	Now func() time.Time
}

// Options tune a Workflow.
type Options struct {
	// FormType is recorded on every submission. Default: model.DefaultFormType.
	FormType string
	// Scale is the render scale of pages sent for extraction.
	// Default: raster.ExtractionScale.
	Scale float64
	// PagePolicy decides what happens to pages that fail to render.
	PagePolicy raster.PagePolicy
	// ExtractionTimeout bounds a single Submit. Zero means no extra bound.
	ExtractionTimeout time.Duration
}

// Workflow creates review sessions that share the same collaborators.
type Workflow struct {
	deps Deps
	opts Options
}

// New creates a Workflow.
func New(deps Deps, opts Options) *Workflow {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.FormType == "" {
		opts.FormType = model.DefaultFormType
	}
	if opts.Scale <= 0 {
		opts.Scale = raster.ExtractionScale
	}
	return &Workflow{deps: deps, opts: opts}
}

// NewSession starts an empty session in pre-review owned by owner.
func (w *Workflow) NewSession(owner string) *Session {
	return newSession(w, owner)
}

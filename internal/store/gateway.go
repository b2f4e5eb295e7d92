package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/schema"
)

// Gateway is the persistence boundary used by the review workflow and the
// HTTP API. Every write is validated strictly before it reaches the Store,
// and every call on an existing submission is checked against its owner.
// Validation failures are returned as *schema.ValidationError; everything
// else is a *PersistenceError.
type Gateway struct {
	store Store
}

// NewGateway wraps s.
func NewGateway(s Store) *Gateway {
	return &Gateway{store: s}
}

// CreateSubmission validates in.Data and inserts it, returning the new id.
func (g *Gateway) CreateSubmission(ctx context.Context, in model.NewSubmission) (string, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return "", &PersistenceError{Kind: KindForbidden, Op: "create submission", Err: eris.New("owner is required")}
	}
	if err := schema.ValidateStrict(in.Data); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.FileName) == "" {
		return "", &schema.ValidationError{Errors: []schema.FieldError{{Path: "fileName", Message: "is required"}}}
	}

	sub, err := g.store.CreateSubmission(ctx, in)
	if err != nil {
		return "", persistenceError("create submission", err)
	}
	zap.L().Info("submission created",
		zap.String("submission_id", sub.ID),
		zap.String("owner_id", sub.OwnerID),
		zap.String("overall_status", string(sub.Index.OverallStatus)),
	)
	return sub.ID, nil
}

// UpdateSubmissionData re-validates data and replaces the stored record.
func (g *Gateway) UpdateSubmissionData(ctx context.Context, owner, id string, data *model.InspectionData) (*model.Submission, error) {
	if err := schema.ValidateStrict(data); err != nil {
		return nil, err
	}
	if _, err := g.owned(ctx, "update submission", owner, id); err != nil {
		return nil, err
	}
	sub, err := g.store.UpdateSubmissionData(ctx, id, data)
	return sub, persistenceError("update submission", err)
}

// AttachPDF records the blob key of the submission's original PDF.
func (g *Gateway) AttachPDF(ctx context.Context, owner, id, key string) (*model.Submission, error) {
	if strings.TrimSpace(key) == "" {
		return nil, &schema.ValidationError{Errors: []schema.FieldError{{Path: "pdfStorageKey", Message: "is required"}}}
	}
	if _, err := g.owned(ctx, "attach pdf", owner, id); err != nil {
		return nil, err
	}
	sub, err := g.store.AttachPDF(ctx, id, key)
	return sub, persistenceError("attach pdf", err)
}

// GetSubmission returns a submission owned by owner.
func (g *Gateway) GetSubmission(ctx context.Context, owner, id string) (*model.Submission, error) {
	return g.owned(ctx, "get submission", owner, id)
}

// ListSubmissions lists owner's submissions.
func (g *Gateway) ListSubmissions(ctx context.Context, owner string, filter model.SubmissionFilter) ([]model.Submission, error) {
	filter.OwnerID = owner
	subs, err := g.store.ListSubmissions(ctx, filter)
	return subs, persistenceError("list submissions", err)
}

// Ping reports whether the underlying store is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	return persistenceError("ping", g.store.Ping(ctx))
}

func (g *Gateway) owned(ctx context.Context, op, owner, id string) (*model.Submission, error) {
	sub, err := g.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	if owner == "" || sub.OwnerID != owner {
		return nil, &PersistenceError{Kind: KindForbidden, Op: op, Err: eris.Errorf("submission %s is not owned by the caller", id)}
	}
	return sub, nil
}

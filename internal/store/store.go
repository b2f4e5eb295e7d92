// Package store persists inspection submissions. Store is the raw
// persistence interface with SQLite and Postgres implementations; Gateway
// wraps a Store with the validation and ownership rules callers rely on.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-review/internal/model"
)

// ErrNotFound is returned when a submission does not exist.
var ErrNotFound = eris.New("store: submission not found")

// defaultListLimit caps ListSubmissions when the filter sets no limit.
const defaultListLimit = 100

// Store defines the persistence interface for submissions.
type Store interface {
	CreateSubmission(ctx context.Context, in model.NewSubmission) (*model.Submission, error)
	UpdateSubmissionData(ctx context.Context, id string, data *model.InspectionData) (*model.Submission, error)
	AttachPDF(ctx context.Context, id, key string) (*model.Submission, error)
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(f model.SubmissionFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

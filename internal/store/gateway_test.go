package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/schema"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	return NewGateway(newTestSQLiteStore(t))
}

func TestGateway_CreateRejectsInvalidData(t *testing.T) {
	g := newTestGateway(t)
	data := sampleData("")

	_, err := g.CreateSubmission(context.Background(), model.NewSubmission{OwnerID: "u", FileName: "f.pdf", Data: data})
	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve))
	_, ok := ve.Field("facilityName")
	assert.True(t, ok)

	subs, err := g.ListSubmissions(context.Background(), "u", model.SubmissionFilter{})
	require.NoError(t, err)
	assert.Empty(t, subs, "nothing is written when validation fails")
}

func TestGateway_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	g := NewGateway(st)
	require.NoError(t, g.Ping(context.Background()))

	require.NoError(t, st.Close())
	err := g.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInternal))
}

func TestGateway_CreateRequiresOwnerAndFileName(t *testing.T) {
	g := newTestGateway(t)

	_, err := g.CreateSubmission(context.Background(), model.NewSubmission{FileName: "f.pdf", Data: sampleData("Acme")})
	assert.True(t, IsKind(err, KindForbidden))

	_, err = g.CreateSubmission(context.Background(), model.NewSubmission{OwnerID: "u", Data: sampleData("Acme")})
	var ve *schema.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestGateway_Lifecycle(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	id, err := g.CreateSubmission(ctx, model.NewSubmission{OwnerID: "alice", FileName: "a.pdf", Data: sampleData("Acme", model.ItemStatusPass)})
	require.NoError(t, err)

	sub, err := g.AttachPDF(ctx, "alice", id, "uploads/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "uploads/a.pdf", sub.PDFStorageKey)

	edited := sub.Data.Clone()
	edited.ChecklistItems[0].Status = model.ItemStatusFail
	edited.Normalize()
	sub, err = g.UpdateSubmissionData(ctx, "alice", id, edited)
	require.NoError(t, err)
	assert.Equal(t, model.OverallNonCompliant, sub.Index.OverallStatus)

	got, err := g.GetSubmission(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusFail, got.Data.ChecklistItems[0].Status)
}

func TestGateway_Ownership(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	id, err := g.CreateSubmission(ctx, model.NewSubmission{OwnerID: "alice", FileName: "a.pdf", Data: sampleData("Acme")})
	require.NoError(t, err)

	_, err = g.GetSubmission(ctx, "mallory", id)
	assert.True(t, IsKind(err, KindForbidden))
	_, err = g.UpdateSubmissionData(ctx, "mallory", id, sampleData("Hijacked"))
	assert.True(t, IsKind(err, KindForbidden))
	_, err = g.AttachPDF(ctx, "mallory", id, "k")
	assert.True(t, IsKind(err, KindForbidden))

	subs, err := g.ListSubmissions(ctx, "mallory", model.SubmissionFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, subs, "the owner filter cannot be overridden")
}

func TestGateway_UpdateValidatesBeforeLookup(t *testing.T) {
	g := newTestGateway(t)
	bad := sampleData("Acme", model.ItemStatusFail)
	bad.OverallStatus = model.OverallCompliant

	_, err := g.UpdateSubmissionData(context.Background(), "alice", "missing", bad)
	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve))
	_, ok := ve.Field("overallStatus")
	assert.True(t, ok)
}

func TestGateway_NotFound(t *testing.T) {
	g := newTestGateway(t)
	_, err := g.GetSubmission(context.Background(), "alice", "missing")
	assert.True(t, IsKind(err, KindNotFound))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersistenceError(t *testing.T) {
	assert.Nil(t, persistenceError("op", nil))

	err := persistenceError("create submission", errors.New("UNIQUE constraint failed: submissions.id"))
	assert.True(t, IsKind(err, KindConflict))
	assert.Contains(t, err.Error(), "store: create submission: conflict")

	err = persistenceError("get", errors.New("disk full"))
	assert.True(t, IsKind(err, KindInternal))

	same := &PersistenceError{Kind: KindForbidden, Op: "x", Err: errors.New("no")}
	assert.Same(t, same, persistenceError("y", same))
}

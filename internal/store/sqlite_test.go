package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/inspection-review/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteStore_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}

func sampleData(facility string, statuses ...model.ItemStatus) *model.InspectionData {
	d := model.NewInspectionData()
	d.FacilityName = facility
	d.FacilityAddress = "100 Industrial Pkwy"
	d.PermitNumber = "TXR150000"
	d.InspectionDate = "2024-06-01"
	d.InspectorName = "Dana Reyes"
	for i, s := range statuses {
		d.ChecklistItems = append(d.ChecklistItems, model.ChecklistItem{
			Description: "item " + string(rune('A'+i)),
			Status:      s,
		})
	}
	d.Normalize()
	return d
}

func TestSQLite_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	data := sampleData("Acme Corp", model.ItemStatusPass, model.ItemStatusFail)
	data.Deadletter["stamp"] = "RECEIVED"

	sub, err := st.CreateSubmission(ctx, model.NewSubmission{
		OwnerID:  "user-1",
		FileName: "acme.pdf",
		Data:     data,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, model.DefaultFormType, sub.FormType)
	assert.Equal(t, model.OverallNonCompliant, sub.Index.OverallStatus)

	got, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.OwnerID)
	assert.Equal(t, "acme.pdf", got.FileName)
	assert.Equal(t, "", got.PDFStorageKey)
	assert.Equal(t, "Acme Corp", got.Data.FacilityName)
	assert.Equal(t, "RECEIVED", got.Data.Deadletter["stamp"])
	assert.Len(t, got.Data.ChecklistItems, 2)
	assert.Equal(t, sub.Index, got.Index)
	assert.WithinDuration(t, sub.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLite_CreateCopiesData(t *testing.T) {
	st := newTestSQLiteStore(t)
	data := sampleData("Acme Corp")

	sub, err := st.CreateSubmission(context.Background(), model.NewSubmission{OwnerID: "u", FileName: "f.pdf", Data: data})
	require.NoError(t, err)

	data.FacilityName = "changed later"
	assert.Equal(t, "Acme Corp", sub.Data.FacilityName)
}

func TestSQLite_UpdateData(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sub, err := st.CreateSubmission(ctx, model.NewSubmission{OwnerID: "u", FileName: "f.pdf", Data: sampleData("Acme", model.ItemStatusFail)})
	require.NoError(t, err)

	updated := sampleData("Acme Renamed", model.ItemStatusPass)
	got, err := st.UpdateSubmissionData(ctx, sub.ID, updated)
	require.NoError(t, err)
	assert.Equal(t, "Acme Renamed", got.Data.FacilityName)
	assert.Equal(t, model.OverallCompliant, got.Index.OverallStatus)
	assert.False(t, got.UpdatedAt.Before(sub.UpdatedAt))

	list, err := st.ListSubmissions(ctx, model.SubmissionFilter{OverallStatus: model.OverallCompliant})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sub.ID, list[0].ID)
}

func TestSQLite_AttachPDF(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sub, err := st.CreateSubmission(ctx, model.NewSubmission{OwnerID: "u", FileName: "f.pdf", Data: sampleData("Acme")})
	require.NoError(t, err)

	got, err := st.AttachPDF(ctx, sub.ID, "uploads/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "uploads/abc.pdf", got.PDFStorageKey)
}

func TestSQLite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetSubmission(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.UpdateSubmissionData(ctx, "missing", sampleData("x"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.AttachPDF(ctx, "missing", "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, in := range []model.NewSubmission{
		{OwnerID: "alice", FileName: "1.pdf", Data: sampleData("North Yard", model.ItemStatusPass)},
		{OwnerID: "alice", FileName: "2.pdf", Data: sampleData("South Yard", model.ItemStatusFail)},
		{OwnerID: "bob", FileName: "3.pdf", Data: sampleData("North Plant", model.ItemStatusPass)},
	} {
		_, err := st.CreateSubmission(ctx, in)
		require.NoError(t, err)
	}

	all, err := st.ListSubmissions(ctx, model.SubmissionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alice, err := st.ListSubmissions(ctx, model.SubmissionFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Len(t, alice, 2)

	north, err := st.ListSubmissions(ctx, model.SubmissionFilter{FacilityName: "north"})
	require.NoError(t, err)
	assert.Len(t, north, 2)

	failing, err := st.ListSubmissions(ctx, model.SubmissionFilter{OwnerID: "alice", OverallStatus: model.OverallNonCompliant})
	require.NoError(t, err)
	require.Len(t, failing, 1)
	assert.Equal(t, "2.pdf", failing[0].FileName)

	page, err := st.ListSubmissions(ctx, model.SubmissionFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/inspection-review/internal/model"
)

func sampleSubmissions() []model.Submission {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	rain := true

	pass := model.NewInspectionData()
	pass.FacilityName = "Acme Corp"
	pass.PermitNumber = "TXR150000"
	pass.InspectionDate = "2025-06-14"
	pass.ChecklistItems = []model.ChecklistItem{
		{Section: "Perimeter", Description: "Silt fence intact", Status: model.ItemStatusPass},
		{Section: "Perimeter", Description: "Inlet protection", Status: model.ItemStatusNA},
	}
	pass.Normalize()

	fail := model.NewInspectionData()
	fail.FacilityName = "Beta Construction Partners Limited Liability Co"
	fail.PermitNumber = "TXR150001"
	fail.RainEvent = &rain
	fail.ChecklistItems = []model.ChecklistItem{
		{Section: "Outfalls", Description: "Sediment at outfall", Status: model.ItemStatusFail, Notes: "heavy",
			EditMeta: model.NewEditMeta("Dana", model.EditCorrection, now)},
	}
	fail.CorrectiveActions = []model.CorrectiveAction{
		{Description: "Remove sediment", DueDate: "2025-06-20"},
		{Description: "Replace fence", Completed: true},
	}
	fail.Deadletter = map[string]any{"stamp": "RECEIVED"}
	fail.Normalize()

	return []model.Submission{
		{ID: "abc12345-6789-0000-0000-000000000000", OwnerID: "u1", FileName: "a.pdf", Data: *pass,
			Index: model.IndexOf(pass), CreatedAt: now, UpdatedAt: now},
		{ID: "def12345-6789-0000-0000-000000000000", OwnerID: "u2", FileName: "b.pdf", Data: *fail,
			Index: model.IndexOf(fail), PDFStorageKey: "def.pdf", CreatedAt: now.Add(-time.Hour), UpdatedAt: now},
	}
}

func TestFormatSubmissionsList(t *testing.T) {
	var buf bytes.Buffer
	formatSubmissionsList(&buf, sampleSubmissions())

	output := buf.String()
	assert.Contains(t, output, "FACILITY")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "Acme Corp")
	assert.Contains(t, output, "compliant")
	assert.Contains(t, output, "non-compliant")
	assert.Contains(t, output, "Beta Construction Partners ...")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestComputeSubmissionStats(t *testing.T) {
	s := computeSubmissionStats(sampleSubmissions())
	assert.Equal(t, submissionStats{
		Total:        2,
		Compliant:    1,
		NonCompliant: 1,
		FailedItems:  1,
		OpenActions:  1,
		Edited:       1,
	}, s)

	var buf bytes.Buffer
	formatSubmissionStats(&buf, s)
	assert.Contains(t, buf.String(), "Total submissions:")
	assert.Contains(t, buf.String(), "Open actions:")
}

func TestCountsOf(t *testing.T) {
	subs := sampleSubmissions()
	c := countsOf(&subs[0].Data)
	assert.Equal(t, recordCounts{Pass: 1, NA: 1}, c)

	c = countsOf(&subs[1].Data)
	assert.Equal(t, 1, c.Fail)
	assert.True(t, c.Edited)
}

func TestSubmissionFilterFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	addSubmissionFilterFlags(cmd, 50)
	require.NoError(t, cmd.Flags().Set("status", "needs-attention"))
	require.NoError(t, cmd.Flags().Set("owner", "u1"))

	f, err := submissionFilterFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionFilter{OwnerID: "u1", OverallStatus: model.OverallNeedsAttention, Limit: 50}, f)

	require.NoError(t, cmd.Flags().Set("status", "excellent"))
	_, err = submissionFilterFromFlags(cmd)
	require.Error(t, err)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

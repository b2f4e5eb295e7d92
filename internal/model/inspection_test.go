package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(statuses ...ItemStatus) []ChecklistItem {
	out := make([]ChecklistItem, len(statuses))
	for i, s := range statuses {
		out[i] = ChecklistItem{Description: "row", Status: s}
	}
	return out
}

func TestDeriveOverallStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []ChecklistItem
		want  OverallStatus
	}{
		{"empty", nil, OverallCompliant},
		{"all pass", items(ItemStatusPass, ItemStatusPass), OverallCompliant},
		{"pass and na", items(ItemStatusPass, ItemStatusNA), OverallCompliant},
		{"all na", items(ItemStatusNA), OverallCompliant},
		{"single fail", items(ItemStatusFail), OverallNonCompliant},
		{"fail among pass", items(ItemStatusPass, ItemStatusFail, ItemStatusNA), OverallNonCompliant},
		{"unknown status", items(ItemStatusPass, ItemStatus("")), OverallNeedsAttention},
		{"fail wins over unknown", items(ItemStatus("maybe"), ItemStatusFail), OverallNonCompliant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DeriveOverallStatus(tt.items))
		})
	}
}

func TestInspectionData_Normalize(t *testing.T) {
	d := NewInspectionData()
	d.OverallStatus = OverallNonCompliant
	d.ChecklistItems = items(ItemStatusPass)

	d.Normalize()
	assert.Equal(t, OverallCompliant, d.OverallStatus)
}

func TestInspectionData_CloneIsDeep(t *testing.T) {
	rain := true
	d := NewInspectionData()
	d.RainEvent = &rain
	d.ChecklistItems = []ChecklistItem{{
		Description: "Silt fence intact",
		Status:      ItemStatusPass,
		EditMeta:    NewEditMeta("Dana", EditCorrection, time.Now()),
	}}
	d.CorrectiveActions = []CorrectiveAction{{Description: "Repair fence"}}
	d.Deadletter["stamp"] = "RECEIVED"
	d.FieldEdits = map[string]EditMeta{FieldFacilityName: *NewEditMeta("Dana", EditUpdate, time.Now())}

	c := d.Clone()
	*c.RainEvent = false
	c.ChecklistItems[0].Status = ItemStatusFail
	c.ChecklistItems[0].EditMeta.EditedBy = "Someone else"
	c.CorrectiveActions[0].Completed = true
	c.Deadletter["extra"] = 1
	c.FieldEdits[FieldSummary] = EditMeta{}

	assert.True(t, *d.RainEvent)
	assert.Equal(t, ItemStatusPass, d.ChecklistItems[0].Status)
	assert.Equal(t, "Dana", d.ChecklistItems[0].EditMeta.EditedBy)
	assert.False(t, d.CorrectiveActions[0].Completed)
	assert.NotContains(t, d.Deadletter, "extra")
	assert.NotContains(t, d.FieldEdits, FieldSummary)
}

func TestInspectionData_CloneNil(t *testing.T) {
	var d *InspectionData
	assert.Nil(t, d.Clone())
}

func TestNewEditMeta(t *testing.T) {
	ts := time.Date(2024, 6, 1, 15, 4, 5, 0, time.FixedZone("EST", -5*3600))
	m := NewEditMeta("Dana", EditCorrection, ts)
	require.NotNil(t, m)
	assert.Equal(t, "2024-06-01T20:04:05Z", m.EditedAt)
	assert.Equal(t, EditCorrection, m.EditType)
}

func TestEdited(t *testing.T) {
	assert.False(t, ChecklistItem{}.Edited())
	assert.True(t, ChecklistItem{EditMeta: &EditMeta{}}.Edited())
	assert.False(t, CorrectiveAction{}.Edited())
}

func TestFieldHints_Empty(t *testing.T) {
	assert.True(t, FieldHints{}.IsEmpty())
	assert.False(t, FieldHints{PermitNumber: "P-1"}.IsEmpty())
}

func TestPrefillResult_Status(t *testing.T) {
	assert.Equal(t, AcroFormNone, PrefillResult{}.Status())
	assert.Equal(t, AcroFormEmpty, PrefillResult{HasAcroForm: true}.Status())
	assert.Equal(t, AcroFormPrefilled, PrefillResult{HasAcroForm: true, AnyPrefilled: true}.Status())
}

func TestIndexOf(t *testing.T) {
	d := NewInspectionData()
	d.FacilityName = "Acme Corp"
	d.PermitNumber = "TXR150000"
	d.OverallStatus = OverallNeedsAttention

	idx := IndexOf(d)
	assert.Equal(t, "Acme Corp", idx.FacilityName)
	assert.Equal(t, "TXR150000", idx.PermitNumber)
	assert.Equal(t, OverallNeedsAttention, idx.OverallStatus)
}

package model

import (
	"maps"
	"slices"
	"time"
)

// ItemStatus is the marking state of a single checklist row.
type ItemStatus string

const (
	ItemStatusPass ItemStatus = "pass"
	ItemStatusFail ItemStatus = "fail"
	ItemStatusNA   ItemStatus = "na"
)

// IsValid returns true if the status is a recognized value.
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPass, ItemStatusFail, ItemStatusNA:
		return true
	}
	return false
}

// OverallStatus summarizes the compliance state of an inspection.
type OverallStatus string

const (
	OverallCompliant      OverallStatus = "compliant"
	OverallNonCompliant   OverallStatus = "non-compliant"
	OverallNeedsAttention OverallStatus = "needs-attention"
)

// IsValid returns true if the status is a recognized value.
func (s OverallStatus) IsValid() bool {
	switch s {
	case OverallCompliant, OverallNonCompliant, OverallNeedsAttention:
		return true
	}
	return false
}

// EditType distinguishes a fix of a machine extraction error from a
// legitimate change of the underlying facts.
type EditType string

const (
	EditCorrection EditType = "correction"
	EditUpdate     EditType = "update"
)

// IsValid returns true if the edit type is a recognized value.
func (t EditType) IsValid() bool {
	return t == EditCorrection || t == EditUpdate
}

// EditMeta records who changed a value, when, and why.
type EditMeta struct {
	EditedBy string   `json:"editedBy"`
	EditedAt string   `json:"editedAt"` // RFC 3339
	EditType EditType `json:"editType"`
}

// NewEditMeta builds an EditMeta stamped with now in UTC.
func NewEditMeta(editor string, editType EditType, now time.Time) *EditMeta {
	return &EditMeta{
		EditedBy: editor,
		EditedAt: now.UTC().Format(time.RFC3339),
		EditType: editType,
	}
}

// ChecklistItem is one row of a compliance checklist.
type ChecklistItem struct {
	Section     string     `json:"section,omitempty"`
	Description string     `json:"description"`
	Status      ItemStatus `json:"status"`
	Notes       string     `json:"notes"`
	EditMeta    *EditMeta  `json:"editMeta,omitempty"`
}

// Edited reports whether a human has touched the item.
func (c ChecklistItem) Edited() bool { return c.EditMeta != nil }

// CorrectiveAction is a follow-up task recorded on the inspection.
type CorrectiveAction struct {
	Description string    `json:"description"`
	DueDate     string    `json:"dueDate"`
	Completed   bool      `json:"completed"`
	EditMeta    *EditMeta `json:"editMeta,omitempty"`
}

// Edited reports whether a human has touched the action.
func (a CorrectiveAction) Edited() bool { return a.EditMeta != nil }

// ResolvedDeadletterField is a deadletter entry a human has placed.
type ResolvedDeadletterField struct {
	OriginalKey   string   `json:"originalKey"`
	ResolvedValue string   `json:"resolvedValue"`
	EditMeta      EditMeta `json:"editMeta"`
}

// InspectionData is the canonical record produced by extraction and
// mutated during review.
type InspectionData struct {
	FacilityName    string `json:"facilityName"`
	FacilityAddress string `json:"facilityAddress"`
	PermitNumber    string `json:"permitNumber"`
	InspectionDate  string `json:"inspectionDate"`
	InspectorName   string `json:"inspectorName"`

	WeatherConditions string `json:"weatherConditions,omitempty"`
	RainEvent         *bool  `json:"rainEvent"`

	OverallStatus     OverallStatus      `json:"overallStatus"`
	ChecklistItems    []ChecklistItem    `json:"checklistItems"`
	CorrectiveActions []CorrectiveAction `json:"correctiveActions"`
	Summary           string             `json:"summary"`

	Deadletter               map[string]any            `json:"deadletter"`
	FieldEdits               map[string]EditMeta       `json:"fieldEdits,omitempty"`
	ResolvedDeadletterFields []ResolvedDeadletterField `json:"resolvedDeadletterFields,omitempty"`
}

// NewInspectionData returns an empty record with initialized collections.
func NewInspectionData() *InspectionData {
	return &InspectionData{
		OverallStatus:     OverallCompliant,
		ChecklistItems:    []ChecklistItem{},
		CorrectiveActions: []CorrectiveAction{},
		Deadletter:        map[string]any{},
	}
}

// DeriveOverallStatus computes the overall status from checklist items:
// any fail is non-compliant, all pass/na is compliant, anything else needs
// attention. An empty list is compliant.
func DeriveOverallStatus(items []ChecklistItem) OverallStatus {
	allResolved := true
	for _, it := range items {
		switch it.Status {
		case ItemStatusFail:
			return OverallNonCompliant
		case ItemStatusPass, ItemStatusNA:
		default:
			allResolved = false
		}
	}
	if allResolved {
		return OverallCompliant
	}
	return OverallNeedsAttention
}

// Normalize re-derives OverallStatus from the checklist items.
func (d *InspectionData) Normalize() {
	d.OverallStatus = DeriveOverallStatus(d.ChecklistItems)
}

// HeaderValue returns the identity header field named by its JSON key.
func (d *InspectionData) HeaderValue(field string) (string, bool) {
	switch field {
	case FieldFacilityName:
		return d.FacilityName, true
	case FieldFacilityAddress:
		return d.FacilityAddress, true
	case FieldPermitNumber:
		return d.PermitNumber, true
	case FieldInspectionDate:
		return d.InspectionDate, true
	case FieldInspectorName:
		return d.InspectorName, true
	}
	return "", false
}

// Clone returns a deep copy so edits can be applied as whole-object
// replacements.
func (d *InspectionData) Clone() *InspectionData {
	if d == nil {
		return nil
	}
	out := *d
	if d.RainEvent != nil {
		v := *d.RainEvent
		out.RainEvent = &v
	}
	out.ChecklistItems = make([]ChecklistItem, len(d.ChecklistItems))
	for i, it := range d.ChecklistItems {
		it.EditMeta = cloneMeta(it.EditMeta)
		out.ChecklistItems[i] = it
	}
	out.CorrectiveActions = make([]CorrectiveAction, len(d.CorrectiveActions))
	for i, a := range d.CorrectiveActions {
		a.EditMeta = cloneMeta(a.EditMeta)
		out.CorrectiveActions[i] = a
	}
	out.Deadletter = maps.Clone(d.Deadletter)
	if out.Deadletter == nil {
		out.Deadletter = map[string]any{}
	}
	out.FieldEdits = maps.Clone(d.FieldEdits)
	out.ResolvedDeadletterFields = slices.Clone(d.ResolvedDeadletterFields)
	return &out
}

func cloneMeta(m *EditMeta) *EditMeta {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// JSON keys of the editable top-level fields.
const (
	FieldFacilityName      = "facilityName"
	FieldFacilityAddress   = "facilityAddress"
	FieldPermitNumber      = "permitNumber"
	FieldInspectionDate    = "inspectionDate"
	FieldInspectorName     = "inspectorName"
	FieldWeatherConditions = "weatherConditions"
	FieldRainEvent         = "rainEvent"
	FieldSummary           = "summary"
)

// HeaderFields lists the identity fields that must be non-empty before a
// record is persisted.
var HeaderFields = []string{
	FieldFacilityName,
	FieldFacilityAddress,
	FieldPermitNumber,
	FieldInspectionDate,
	FieldInspectorName,
}

package schema

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-review/internal/model"
)

// ValidateStrict checks d against the persistence constraints. It never
// modifies d, so validating an already valid record is idempotent.
func ValidateStrict(d *model.InspectionData) error {
	if d == nil {
		return &ValidationError{Errors: []FieldError{{Path: "", Message: "data is required"}}}
	}

	var c collector
	for _, field := range model.HeaderFields {
		v, _ := d.HeaderValue(field)
		if strings.TrimSpace(v) == "" {
			c.add(field, "is required")
		}
	}

	if !d.OverallStatus.IsValid() {
		c.add("overallStatus", "must be one of compliant, non-compliant, needs-attention")
	}

	for i, it := range d.ChecklistItems {
		if !it.Status.IsValid() {
			c.add(indexPath("checklistItems", i, "status"), "must be one of pass, fail, na (got %q)", it.Status)
		}
		if it.EditMeta != nil {
			validateMeta(&c, indexPath("checklistItems", i, "editMeta"), *it.EditMeta)
		}
	}

	if d.OverallStatus.IsValid() {
		if want := model.DeriveOverallStatus(d.ChecklistItems); d.OverallStatus != want {
			c.add("overallStatus", "is %s but checklist items derive %s", d.OverallStatus, want)
		}
	}

	for i, a := range d.CorrectiveActions {
		if a.EditMeta != nil {
			validateMeta(&c, indexPath("correctiveActions", i, "editMeta"), *a.EditMeta)
		}
	}

	for _, field := range slices.Sorted(maps.Keys(d.FieldEdits)) {
		validateMeta(&c, "fieldEdits."+field, d.FieldEdits[field])
	}

	for i, r := range d.ResolvedDeadletterFields {
		if strings.TrimSpace(r.OriginalKey) == "" {
			c.add(indexPath("resolvedDeadletterFields", i, "originalKey"), "is required")
		} else if _, pending := d.Deadletter[r.OriginalKey]; pending {
			c.add(indexPath("resolvedDeadletterFields", i, "originalKey"), "%q is still present in deadletter", r.OriginalKey)
		}
		validateMeta(&c, indexPath("resolvedDeadletterFields", i, "editMeta"), r.EditMeta)
	}

	return c.err()
}

func validateMeta(c *collector, path string, m model.EditMeta) {
	if strings.TrimSpace(m.EditedBy) == "" {
		c.add(path+".editedBy", "is required")
	}
	if _, err := time.Parse(time.RFC3339, m.EditedAt); err != nil {
		c.add(path+".editedAt", "must be an ISO-8601 timestamp")
	}
	if !m.EditType.IsValid() {
		c.add(path+".editType", "must be one of correction, update")
	}
}

// DecodeStrict decodes a client-supplied record, rejecting unknown fields,
// and validates it strictly.
func DecodeStrict(data []byte) (*model.InspectionData, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var d model.InspectionData
	if err := dec.Decode(&d); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Path: "", Message: eris.Wrap(err, "decode").Error()}}}
	}
	if d.Deadletter == nil {
		d.Deadletter = map[string]any{}
	}
	if d.ChecklistItems == nil {
		d.ChecklistItems = []model.ChecklistItem{}
	}
	if d.CorrectiveActions == nil {
		d.CorrectiveActions = []model.CorrectiveAction{}
	}
	if err := ValidateStrict(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

package review

import (
	"slices"
	"strconv"
	"strings"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/schema"
)

// Editor attributes an edit. An empty Name records no EditMeta.
type Editor struct {
	Name string
	Type model.EditType
}

// ChecklistPatch changes the non-nil members of a checklist item.
type ChecklistPatch struct {
	Section     *string           `json:"section,omitempty"`
	Description *string           `json:"description,omitempty"`
	Status      *model.ItemStatus `json:"status,omitempty"`
	Notes       *string           `json:"notes,omitempty"`
}

// ActionPatch changes the non-nil members of a corrective action.
type ActionPatch struct {
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// edit applies fn to a copy of the record and swaps it in. overallStatus
// is re-derived before the lock is released, so the next read sees it.
func (s *Session) edit(fn func(d *model.InspectionData) error) error {
	if err := s.lock(StatePostReview); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if s.saving {
		return ErrSaveInFlight
	}
	next := s.data.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.Normalize()
	s.data = next
	return nil
}

func (s *Session) meta(by Editor) (*model.EditMeta, error) {
	if strings.TrimSpace(by.Name) == "" {
		return nil, nil
	}
	if by.Type == "" {
		by.Type = model.EditCorrection
	}
	if !by.Type.IsValid() {
		return nil, fieldErr("editType", "must be one of correction, update")
	}
	return model.NewEditMeta(strings.TrimSpace(by.Name), by.Type, s.wf.deps.Now()), nil
}

func fieldErr(path, msg string) error {
	return &schema.ValidationError{Errors: []schema.FieldError{{Path: path, Message: msg}}}
}

func checkStatus(path string, st model.ItemStatus) (model.ItemStatus, error) {
	if st == "" {
		return model.ItemStatusNA, nil
	}
	if !st.IsValid() {
		return "", fieldErr(path, "must be one of pass, fail, na")
	}
	return st, nil
}

// UpdateChecklistItem patches item i. Reassigning a section registers the
// section label.
func (s *Session) UpdateChecklistItem(i int, p ChecklistPatch, by Editor) error {
	return s.edit(func(d *model.InspectionData) error {
		if i < 0 || i >= len(d.ChecklistItems) {
			return ErrIndexOutOfRange
		}
		meta, err := s.meta(by)
		if err != nil {
			return err
		}
		it := &d.ChecklistItems[i]
		if p.Status != nil {
			st, err := checkStatus("status", *p.Status)
			if err != nil {
				return err
			}
			it.Status = st
		}
		if p.Description != nil {
			it.Description = *p.Description
		}
		if p.Notes != nil {
			it.Notes = *p.Notes
		}
		if p.Section != nil {
			it.Section = strings.TrimSpace(*p.Section)
			s.addSection(it.Section)
		}
		if meta != nil {
			it.EditMeta = meta
		}
		return nil
	})
}

// AddChecklistItem appends item. A blank status is na.
func (s *Session) AddChecklistItem(item model.ChecklistItem, by Editor) error {
	return s.edit(func(d *model.InspectionData) error {
		st, err := checkStatus("status", item.Status)
		if err != nil {
			return err
		}
		meta, err := s.meta(by)
		if err != nil {
			return err
		}
		item.Status = st
		item.Section = strings.TrimSpace(item.Section)
		item.EditMeta = meta
		s.addSection(item.Section)
		d.ChecklistItems = append(d.ChecklistItems, item)
		return nil
	})
}

// RemoveChecklistItem deletes item i.
func (s *Session) RemoveChecklistItem(i int) error {
	return s.edit(func(d *model.InspectionData) error {
		if i < 0 || i >= len(d.ChecklistItems) {
			return ErrIndexOutOfRange
		}
		d.ChecklistItems = slices.Delete(d.ChecklistItems, i, i+1)
		return nil
	})
}

// UpdateCorrectiveAction patches action i.
func (s *Session) UpdateCorrectiveAction(i int, p ActionPatch, by Editor) error {
	return s.edit(func(d *model.InspectionData) error {
		if i < 0 || i >= len(d.CorrectiveActions) {
			return ErrIndexOutOfRange
		}
		meta, err := s.meta(by)
		if err != nil {
			return err
		}
		a := &d.CorrectiveActions[i]
		if p.Description != nil {
			a.Description = *p.Description
		}
		if p.DueDate != nil {
			a.DueDate = strings.TrimSpace(*p.DueDate)
		}
		if p.Completed != nil {
			a.Completed = *p.Completed
		}
		if meta != nil {
			a.EditMeta = meta
		}
		return nil
	})
}

// AddCorrectiveAction appends a.
func (s *Session) AddCorrectiveAction(a model.CorrectiveAction, by Editor) error {
	return s.edit(func(d *model.InspectionData) error {
		meta, err := s.meta(by)
		if err != nil {
			return err
		}
		a.EditMeta = meta
		d.CorrectiveActions = append(d.CorrectiveActions, a)
		return nil
	})
}

// RemoveCorrectiveAction deletes action i.
func (s *Session) RemoveCorrectiveAction(i int) error {
	return s.edit(func(d *model.InspectionData) error {
		if i < 0 || i >= len(d.CorrectiveActions) {
			return ErrIndexOutOfRange
		}
		d.CorrectiveActions = slices.Delete(d.CorrectiveActions, i, i+1)
		return nil
	})
}

// UpdateField sets a top-level scalar field by its JSON name and records
// the edit in fieldEdits. rainEvent takes "true", "false" or "" (unknown).
func (s *Session) UpdateField(field, value string, by Editor) error {
	return s.edit(func(d *model.InspectionData) error {
		meta, err := s.meta(by)
		if err != nil {
			return err
		}
		switch field {
		case model.FieldFacilityName:
			d.FacilityName = strings.TrimSpace(value)
		case model.FieldFacilityAddress:
			d.FacilityAddress = strings.TrimSpace(value)
		case model.FieldPermitNumber:
			d.PermitNumber = strings.TrimSpace(value)
		case model.FieldInspectionDate:
			d.InspectionDate = strings.TrimSpace(value)
		case model.FieldInspectorName:
			d.InspectorName = strings.TrimSpace(value)
		case model.FieldWeatherConditions:
			d.WeatherConditions = strings.TrimSpace(value)
		case model.FieldSummary:
			d.Summary = value
		case model.FieldRainEvent:
			if strings.TrimSpace(value) == "" {
				d.RainEvent = nil
				break
			}
			b, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return fieldErr(field, "must be true, false or empty")
			}
			d.RainEvent = &b
		default:
			return ErrUnknownField
		}
		if meta != nil {
			if d.FieldEdits == nil {
				d.FieldEdits = map[string]model.EditMeta{}
			}
			d.FieldEdits[field] = *meta
		}
		return nil
	})
}

// ResolveDeadletter moves key out of deadletter and into
// resolvedDeadletterFields in one step. A resolution must be attributed.
func (s *Session) ResolveDeadletter(key, value string, by Editor) error {
	return s.edit(func(d *model.InspectionData) error {
		if _, ok := d.Deadletter[key]; !ok {
			return ErrUnknownDeadletter
		}
		meta, err := s.meta(by)
		if err != nil {
			return err
		}
		if meta == nil {
			return fieldErr("editedBy", "is required to resolve a deadletter entry")
		}
		delete(d.Deadletter, key)
		d.ResolvedDeadletterFields = append(d.ResolvedDeadletterFields, model.ResolvedDeadletterField{
			OriginalKey:   key,
			ResolvedValue: value,
			EditMeta:      *meta,
		})
		return nil
	})
}

// Sections returns the candidate section labels.
func (s *Session) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sections)
}

// AddSection registers a section label. Checklist items are untouched.
func (s *Session) AddSection(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fieldErr("section", "is required")
	}
	if err := s.lock(StatePostReview); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.addSection(name)
	return nil
}

// RemoveSection drops a section label. Items keep whatever section they
// were assigned.
func (s *Session) RemoveSection(name string) error {
	if err := s.lock(StatePostReview); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.sections = slices.DeleteFunc(s.sections, func(x string) bool { return x == name })
	return nil
}

// addSection requires s.mu.
func (s *Session) addSection(name string) {
	if name != "" && !slices.Contains(s.sections, name) {
		s.sections = append(s.sections, name)
	}
}

func sectionsOf(items []model.ChecklistItem) []string {
	var out []string
	for _, it := range items {
		if it.Section != "" && !slices.Contains(out, it.Section) {
			out = append(out, it.Section)
		}
	}
	return out
}

package schema

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-review/internal/model"
)

// ParseLenient decodes extraction output into InspectionData. Missing or
// null optional values take their zero value, status synonyms are folded
// onto the enum, and unknown top-level keys are preserved in deadletter.
// The advisory overallStatus in the payload is discarded and re-derived.
// A payload that is not a JSON object, or whose known fields have the
// wrong shape, is an error.
func ParseLenient(data []byte) (*model.InspectionData, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.New("schema: empty payload")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "schema: payload is not a JSON object")
	}
	if raw == nil {
		return nil, eris.New("schema: payload is null")
	}

	d := model.NewInspectionData()
	var c collector

	stringFields := map[string]*string{
		model.FieldFacilityName:      &d.FacilityName,
		model.FieldFacilityAddress:   &d.FacilityAddress,
		model.FieldPermitNumber:      &d.PermitNumber,
		model.FieldInspectionDate:    &d.InspectionDate,
		model.FieldInspectorName:     &d.InspectorName,
		model.FieldWeatherConditions: &d.WeatherConditions,
		model.FieldSummary:           &d.Summary,
	}

	for _, key := range slices.Sorted(maps.Keys(raw)) {
		val := raw[key]
		if dst, ok := stringFields[key]; ok {
			s, err := looseString(val)
			if err != nil {
				c.add(key, "%s", err.Error())
				continue
			}
			*dst = s
			continue
		}

		switch key {
		case model.FieldRainEvent:
			b, err := looseOptBool(val)
			if err != nil {
				c.add(key, "%s", err.Error())
				continue
			}
			d.RainEvent = b
		case "overallStatus":
			// advisory only
		case "checklistItems":
			d.ChecklistItems = parseChecklist(&c, val)
		case "correctiveActions":
			d.CorrectiveActions = parseActions(&c, val)
		case "deadletter":
			parseDeadletter(&c, val, d.Deadletter)
		case "fieldEdits":
			if isNull(val) {
				continue
			}
			if err := json.Unmarshal(val, &d.FieldEdits); err != nil {
				c.add(key, "must be an object of edit records")
			}
		case "resolvedDeadletterFields":
			if isNull(val) {
				continue
			}
			if err := json.Unmarshal(val, &d.ResolvedDeadletterFields); err != nil {
				c.add(key, "must be an array of resolved entries")
			}
		default:
			var v any
			if err := json.Unmarshal(val, &v); err == nil {
				d.Deadletter[key] = v
			}
		}
	}

	if err := c.err(); err != nil {
		return nil, err
	}
	d.Normalize()
	return d, nil
}

type rawChecklistItem struct {
	Section     json.RawMessage `json:"section"`
	Description json.RawMessage `json:"description"`
	Status      json.RawMessage `json:"status"`
	Notes       json.RawMessage `json:"notes"`
	EditMeta    *model.EditMeta `json:"editMeta"`
}

func parseChecklist(c *collector, val json.RawMessage) []model.ChecklistItem {
	out := []model.ChecklistItem{}
	if isNull(val) {
		return out
	}
	var rows []rawChecklistItem
	if err := json.Unmarshal(val, &rows); err != nil {
		c.add("checklistItems", "must be an array of objects")
		return out
	}
	for i, r := range rows {
		item := model.ChecklistItem{EditMeta: r.EditMeta}
		var err error
		if item.Section, err = looseString(r.Section); err != nil {
			c.add(indexPath("checklistItems", i, "section"), "%s", err.Error())
		}
		if item.Description, err = looseString(r.Description); err != nil {
			c.add(indexPath("checklistItems", i, "description"), "%s", err.Error())
		}
		if item.Notes, err = looseString(r.Notes); err != nil {
			c.add(indexPath("checklistItems", i, "notes"), "%s", err.Error())
		}
		status, err := looseString(r.Status)
		if err != nil {
			c.add(indexPath("checklistItems", i, "status"), "%s", err.Error())
			continue
		}
		st, ok := NormalizeItemStatus(status)
		if !ok {
			c.add(indexPath("checklistItems", i, "status"), "unrecognized status %q", status)
			continue
		}
		item.Status = st
		out = append(out, item)
	}
	return out
}

type rawCorrectiveAction struct {
	Description json.RawMessage `json:"description"`
	DueDate     json.RawMessage `json:"dueDate"`
	Completed   json.RawMessage `json:"completed"`
	EditMeta    *model.EditMeta `json:"editMeta"`
}

func parseActions(c *collector, val json.RawMessage) []model.CorrectiveAction {
	out := []model.CorrectiveAction{}
	if isNull(val) {
		return out
	}
	var rows []rawCorrectiveAction
	if err := json.Unmarshal(val, &rows); err != nil {
		c.add("correctiveActions", "must be an array of objects")
		return out
	}
	for i, r := range rows {
		a := model.CorrectiveAction{EditMeta: r.EditMeta}
		var err error
		if a.Description, err = looseString(r.Description); err != nil {
			c.add(indexPath("correctiveActions", i, "description"), "%s", err.Error())
		}
		if a.DueDate, err = looseString(r.DueDate); err != nil {
			c.add(indexPath("correctiveActions", i, "dueDate"), "%s", err.Error())
		}
		done, err := looseOptBool(r.Completed)
		if err != nil {
			c.add(indexPath("correctiveActions", i, "completed"), "%s", err.Error())
		}
		a.Completed = done != nil && *done
		out = append(out, a)
	}
	return out
}

func parseDeadletter(c *collector, val json.RawMessage, dst map[string]any) {
	if isNull(val) {
		return
	}
	var m map[string]any
	if err := json.Unmarshal(val, &m); err != nil {
		// Keep whatever the service sent rather than dropping it.
		var v any
		if json.Unmarshal(val, &v) != nil {
			c.add("deadletter", "must be valid JSON")
			return
		}
		dst["deadletter"] = v
		return
	}
	for k, v := range m {
		dst[k] = v
	}
}

// NormalizeItemStatus folds the marking vocabulary onto pass, fail and na.
// Blank means no target was marked, which is na.
func NormalizeItemStatus(s string) (model.ItemStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "passed", "yes", "y", "true", "ok", "compliant", "✓", "✔":
		return model.ItemStatusPass, true
	case "fail", "failed", "no", "n", "false", "deficient", "non-compliant", "✗", "✘":
		return model.ItemStatusFail, true
	case "na", "n/a", "n.a.", "not applicable", "none", "":
		return model.ItemStatusNA, true
	}
	return "", false
}

func isNull(val json.RawMessage) bool {
	v := bytes.TrimSpace(val)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// looseString accepts strings, numbers, and null.
func looseString(val json.RawMessage) (string, error) {
	if isNull(val) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(val, &n); err == nil {
		return n.String(), nil
	}
	return "", eris.New("must be a string")
}

// looseOptBool accepts booleans, null, and yes/no style strings.
func looseOptBool(val json.RawMessage) (*bool, error) {
	if isNull(val) {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(val, &b); err == nil {
		return &b, nil
	}
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "":
			return nil, nil
		case "yes", "y", "x", "checked":
			t := true
			return &t, nil
		case "no", "n", "unchecked":
			f := false
			return &f, nil
		}
		if parsed, err := strconv.ParseBool(s); err == nil {
			return &parsed, nil
		}
	}
	return nil, eris.New("must be a boolean")
}

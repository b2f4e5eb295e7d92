package prefill

import (
	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/model"
)

// Matcher maps AcroForm fields onto hint keys using a rule table.
type Matcher struct {
	rules []Rule
}

// NewMatcher compiles rules into a Matcher. Nil rules use DefaultRules.
func NewMatcher(rules []Rule) (*Matcher, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Matcher{rules: compiled}, nil
}

// Match applies the rule table to fields. Only text fields contribute
// values, and the first non-empty value for a key wins. HasAcroForm is
// true whenever any field exists.
func (m *Matcher) Match(fields []Field) model.PrefillResult {
	res := model.PrefillResult{HasAcroForm: len(fields) > 0}

	for _, f := range fields {
		if f.Type != FieldText || f.Value == "" {
			continue
		}
		key, ok := m.keyFor(f.Name)
		if !ok || res.Hints.Get(key) != "" {
			continue
		}
		res.Hints.Set(key, f.Value)
		res.AnyPrefilled = true
	}
	return res
}

func (m *Matcher) keyFor(name string) (model.HintKey, bool) {
	folded := foldName(name)
	for _, r := range m.rules {
		if r.matches(folded) {
			return r.Key, true
		}
	}
	return "", false
}

// Extract reads pdf's form fields and matches them. It never fails: an
// unreadable document is reported as having no form.
func (m *Matcher) Extract(pdf []byte) model.PrefillResult {
	fields, err := ReadFields(pdf)
	if err != nil {
		zap.L().Debug("prefill: form fields unreadable", zap.Error(err))
		return model.PrefillResult{}
	}
	return m.Match(fields)
}

package prefill

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/inspection-review/internal/model"
)

// Rule maps field names matching any of Patterns onto a hint key. Patterns
// are case-insensitive regular expressions matched anywhere in the
// folded field name.
type Rule struct {
	Key      model.HintKey `yaml:"key"`
	Patterns []string      `yaml:"patterns"`

	compiled []*regexp.Regexp
}

// RuleSet is the on-disk form of a rule table.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules is the built-in rule table. Order matters: a field is
// claimed by the first rule it matches, so the narrower header names come
// before the generic date and condition patterns.
func DefaultRules() []Rule {
	return []Rule{
		{Key: model.HintFacilityAddress, Patterns: []string{
			`address`, `street`, `location`, `site\s*addr`,
		}},
		{Key: model.HintFacilityName, Patterns: []string{
			`facility`, `site\s*name`, `company`, `organi[sz]ation`, `property`, `project\s*name`,
		}},
		{Key: model.HintPermitNumber, Patterns: []string{
			`permit`, `authori[sz]ation`, `npdes`, `tpdes`, `certificate\s*(no|num)`,
		}},
		{Key: model.HintInspectorName, Patterns: []string{
			`inspector`, `inspected\s*by`, `performed\s*by`, `completed\s*by`, `conducted\s*by`,
		}},
		{Key: model.HintInspectionDate, Patterns: []string{
			`inspection\s*date`, `date\s*of\s*inspection`, `^date$`, `\bdate\b`,
		}},
		{Key: model.HintWeatherConditions, Patterns: []string{
			`weather`, `condition`, `precip`, `temperature`,
		}},
	}
}

// LoadRules reads a YAML rule table from path.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prefill: read rules %s", path)
	}
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, eris.Wrapf(err, "prefill: parse rules %s", path)
	}
	if len(set.Rules) == 0 {
		return nil, eris.Errorf("prefill: %s defines no rules", path)
	}
	for _, r := range set.Rules {
		if !model.IsHintKey(r.Key) {
			return nil, eris.Errorf("prefill: unknown hint key %q in %s", r.Key, path)
		}
	}
	return set.Rules, nil
}

func compileRules(rules []Rule) ([]Rule, error) {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		r.compiled = make([]*regexp.Regexp, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, eris.Wrapf(err, "prefill: rule %s pattern %q", r.Key, p)
			}
			r.compiled = append(r.compiled, re)
		}
		out[i] = r
	}
	return out, nil
}

// foldName normalizes a field name for matching: Unicode case folding,
// and the separators form authors use in place of spaces.
func foldName(name string) string {
	name = cases.Fold().String(name)
	name = strings.NewReplacer("_", " ", "-", " ", ".", " ", ":", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

func (r Rule) matches(folded string) bool {
	for _, re := range r.compiled {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}

package pattern

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

var _ Matcher = (*RuleMatcher)(nil)

// RuleMatcher holds active rules in their total evaluation order.
type RuleMatcher struct {
	compiledRegex map[int64]*regexp.Regexp
	rules         []model.Rule
}

// NewMatcher creates a matcher over the active rules in rules. The order of
// the input does not matter: rules are sorted by priority descending, then
// by creation order.
func NewMatcher(rules []model.Rule) *RuleMatcher {
	m := &RuleMatcher{compiledRegex: make(map[int64]*regexp.Regexp)}

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if rule.Kind == model.MatchRegex {
			re, err := common.CompileInsensitive(rule.Pattern)
			if err != nil {
				// Stored regexes are validated on creation; one that no
				// longer compiles simply never matches.
				slog.Warn("skipping rule with invalid regex", "rule_id", rule.ID, "pattern", rule.Pattern, "error", err)
				continue
			}
			m.compiledRegex[rule.ID] = re
		}
		m.rules = append(m.rules, rule)
	}

	sort.SliceStable(m.rules, func(i, j int) bool { return m.rules[i].Precedes(m.rules[j]) })
	return m
}

// Rules returns the matcher's rules in evaluation order.
func (m *RuleMatcher) Rules() []model.Rule {
	return append([]model.Rule(nil), m.rules...)
}

// Match returns the first rule matching the transaction description.
func (m *RuleMatcher) Match(txn model.Transaction) *model.Rule {
	for i := range m.rules {
		if m.matches(m.rules[i], txn.Description) {
			rule := m.rules[i]
			return &rule
		}
	}
	return nil
}

func (m *RuleMatcher) matches(rule model.Rule, description string) bool {
	switch rule.Kind {
	case model.MatchRegex:
		re, ok := m.compiledRegex[rule.ID]
		return ok && re.MatchString(description)
	case model.MatchStartsWith:
		return strings.HasPrefix(strings.ToLower(description), strings.ToLower(rule.Pattern))
	default:
		return strings.Contains(strings.ToLower(description), strings.ToLower(rule.Pattern))
	}
}

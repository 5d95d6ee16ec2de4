package pattern

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

func rule(id int64, pattern string, kind model.MatchKind, priority int) model.Rule {
	return model.Rule{ID: id, Pattern: pattern, Kind: kind, Priority: priority, CategoryID: id * 10, IsActive: true}
}

func txn(description string) model.Transaction {
	return model.Transaction{Description: description}
}

func TestRuleMatcher_MatchKinds(t *testing.T) {
	tests := []struct {
		name        string
		rule        model.Rule
		description string
		want        bool
	}{
		{name: "contains is case-insensitive", rule: rule(1, "github", model.MatchContains, 0), description: "PAYPAL *GITHUB INC", want: true},
		{name: "contains misses", rule: rule(1, "gitlab", model.MatchContains, 0), description: "GITHUB INC"},
		{name: "starts with", rule: rule(1, "Amzn", model.MatchStartsWith, 0), description: "AMZN Mktp US*2K4", want: true},
		{name: "starts with is anchored", rule: rule(1, "mktp", model.MatchStartsWith, 0), description: "AMZN Mktp US*2K4"},
		{name: "regex is case-insensitive", rule: rule(1, `^aws.*\d+$`, model.MatchRegex, 0), description: "AWS EMEA 12345", want: true},
		{name: "regex searches the description", rule: rule(1, `emea`, model.MatchRegex, 0), description: "AWS EMEA 12345", want: true},
		{name: "regex misses", rule: rule(1, `^aws.*\d+$`, model.MatchRegex, 0), description: "AWS EMEA"},
		{name: "invalid regex never matches", rule: rule(1, `([`, model.MatchRegex, 0), description: "(["},
		{name: "inactive rules are ignored", rule: model.Rule{ID: 1, Pattern: "x", Kind: model.MatchContains}, description: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMatcher([]model.Rule{tt.rule}).Match(txn(tt.description))
			if !tt.want {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.rule.ID, got.ID)
		})
	}
}

func TestRuleMatcher_PriorityDeterminism(t *testing.T) {
	rules := []model.Rule{
		rule(1, "coffee", model.MatchContains, 0),
		rule(2, "starbucks", model.MatchContains, 5),
		rule(3, "STAR", model.MatchStartsWith, 5),
		rule(4, "bucks", model.MatchContains, 1),
	}

	// Evaluation order must not depend on input order.
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]model.Rule(nil), rules...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		m := NewMatcher(shuffled)
		got := m.Match(txn("STARBUCKS COFFEE #123"))
		require.NotNil(t, got)
		assert.Equal(t, int64(2), got.ID, "equal priority resolves to the earlier rule")

		var order []int64
		for _, r := range m.Rules() {
			order = append(order, r.ID)
		}
		assert.Equal(t, []int64{2, 3, 4, 1}, order)
	}

	assert.Equal(t, int64(1), NewMatcher(rules).Match(txn("coffee shop")).ID)
}

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		wantErr error
		spec    model.RuleSpec
		name    string
		want    model.MatchKind
	}{
		{name: "blank pattern", spec: model.RuleSpec{Pattern: "  "}, wantErr: common.ErrEmptyPattern},
		{name: "default kind", spec: model.RuleSpec{Pattern: " github "}, want: model.MatchContains},
		{name: "unknown kind", spec: model.RuleSpec{Pattern: "x", Kind: "glob"}, wantErr: common.ErrInvalidMatchKind},
		{name: "invalid regex", spec: model.RuleSpec{Pattern: "(", Kind: model.MatchRegex}, wantErr: common.ErrInvalidPattern},
		{name: "valid regex", spec: model.RuleSpec{Pattern: `^AWS`, Kind: model.MatchRegex}, want: model.MatchRegex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSpec(tt.spec)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Kind)
			assert.NotContains(t, got.Pattern, " ")
		})
	}
}

func TestSuggestPattern(t *testing.T) {
	assert.Equal(t, "ADOBE CREATIVE", SuggestPattern("ADOBE CREATIVE CLOUD 800-833"))
	assert.Equal(t, "GITHUB", SuggestPattern("  GITHUB  "))
	assert.Equal(t, "", SuggestPattern(""))
}

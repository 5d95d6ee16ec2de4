package pattern

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// ValidateSpec checks a rule spec before a rule is created from it and
// returns it with a normalized match kind and trimmed pattern.
func ValidateSpec(spec model.RuleSpec) (model.RuleSpec, error) {
	spec.Pattern = strings.TrimSpace(spec.Pattern)
	if spec.Pattern == "" {
		return spec, common.ErrEmptyPattern
	}

	kind, err := model.ParseMatchKind(string(spec.Kind))
	if err != nil {
		return spec, fmt.Errorf("%w: %w", common.ErrInvalidMatchKind, err)
	}
	spec.Kind = kind

	if kind == model.MatchRegex {
		if _, err := common.CompileInsensitive(spec.Pattern); err != nil {
			return spec, fmt.Errorf("%w: %w", common.ErrInvalidPattern, err)
		}
	}
	return spec, nil
}

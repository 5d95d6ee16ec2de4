package pattern

import "strings"

// SuggestPattern proposes a substring pattern for a new rule: the first two
// words of the description, or the only word.
func SuggestPattern(description string) string {
	words := strings.Fields(description)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}

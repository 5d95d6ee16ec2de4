// Package pattern evaluates classification rules against transaction descriptions.
package pattern

import "github.com/Veraticus/tally/internal/model"

// Matcher finds the rule that classifies a transaction.
type Matcher interface {
	// Match returns the first rule in evaluation order that matches txn, or nil.
	Match(txn model.Transaction) *model.Rule
}

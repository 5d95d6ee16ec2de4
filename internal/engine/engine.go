// Package engine runs the rule-based classification sweep over unresolved transactions.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/service"
)

// ProgressFunc is called after each transaction is evaluated.
type ProgressFunc func(done, total int)

// ClassifyResult reports the outcome of one sweep.
type ClassifyResult struct {
	Categorized     int
	StillUnresolved int
}

// ClassificationEngine applies active rules to unresolved transactions.
type ClassificationEngine struct {
	storage  service.Storage
	progress ProgressFunc
}

// Option configures a ClassificationEngine.
type Option func(*ClassificationEngine)

// WithProgress reports sweep progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(e *ClassificationEngine) { e.progress = fn }
}

// New creates a classification engine over storage.
func New(storage service.Storage, opts ...Option) *ClassificationEngine {
	e := &ClassificationEngine{storage: storage}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ClassifyAll evaluates every unresolved transaction against the active rules.
// The first matching rule sets category and vendor, clears the unresolved
// flag, and gains a hit. Already-categorized transactions are never visited,
// so a second sweep without new data or rules categorizes nothing. The sweep
// commits as one unit.
func (e *ClassificationEngine) ClassifyAll(ctx context.Context) (*ClassifyResult, error) {
	result := &ClassifyResult{}

	err := service.WithTx(ctx, e.storage, func(tx service.Transaction) error {
		rules, err := tx.GetActiveRules(ctx)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
		pending, err := tx.GetUnresolvedTransactions(ctx)
		if err != nil {
			return fmt.Errorf("failed to load unresolved transactions: %w", err)
		}

		matcher := pattern.NewMatcher(rules)
		for i, txn := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}

			if rule := matcher.Match(txn); rule != nil {
				if err := tx.SetTransactionState(ctx, txn.ID, model.Resolved(rule.CategoryID, rule.Vendor)); err != nil {
					return fmt.Errorf("failed to categorize transaction %d: %w", txn.ID, err)
				}
				if err := tx.IncrementRuleHitCount(ctx, rule.ID); err != nil {
					return err
				}
				result.Categorized++
				slog.Debug("categorized transaction", "transaction_id", txn.ID, "rule_id", rule.ID, "category", rule.Category)
			} else {
				result.StillUnresolved++
			}

			if e.progress != nil {
				e.progress(i+1, len(pending))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Classification complete",
		"categorized", result.Categorized,
		"still_unresolved", result.StillUnresolved)
	return result, nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReasonNoMatchingRule is the unresolved reason recorded when no rule matched.
const ReasonNoMatchingRule = "No matching rule"

// DateLayout is the ISO calendar date layout used for every stored date.
const DateLayout = "2006-01-02"

// Transaction is the ledger unit.
// CategoryID is set if and only if Unresolved is false.
type Transaction struct {
	CreatedAt        time.Time
	CategoryID       *int64
	ImportID         *int64
	Date             string // ISO calendar date
	Description      string // raw source text, trimmed, never re-cased
	Vendor           string
	UnresolvedReason string
	AccountName      string // populated by joins; not persisted
	Amount           decimal.Decimal
	ID               int64
	AccountID        int64
	Unresolved       bool
}

// State captures the mutable classification fields of a transaction.
func (t *Transaction) State() TransactionState {
	s := TransactionState{
		Vendor:           t.Vendor,
		UnresolvedReason: t.UnresolvedReason,
		Unresolved:       t.Unresolved,
	}
	if t.CategoryID != nil {
		id := *t.CategoryID
		s.CategoryID = &id
	}
	return s
}

// TransactionState is the classification portion of a transaction: what the
// rule engine and review session mutate, and what an undo restores.
type TransactionState struct {
	CategoryID       *int64
	Vendor           string
	UnresolvedReason string
	Unresolved       bool
}

// Resolved returns the state of a transaction categorized into categoryID.
func Resolved(categoryID int64, vendor string) TransactionState {
	return TransactionState{CategoryID: &categoryID, Vendor: vendor}
}

// Consistent reports whether the category/unresolved invariant holds.
func (s TransactionState) Consistent() bool {
	return (s.CategoryID != nil) != s.Unresolved
}

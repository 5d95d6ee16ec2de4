package model

import "time"

// CategoryType indicates whether a category is for income or expense.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// Category is a taxonomy leaf mapped to a tax-reporting line.
// Categories are deactivated, never deleted, so historical transactions keep their reference.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	TaxLine     string
	FormLine    string
	Type        CategoryType
	ID          int64
	IsActive    bool
}

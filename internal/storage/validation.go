// Package storage provides the SQLite persistence layer for the ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidRule        = errors.New("invalid rule")
	ErrInvalidImport      = errors.New("invalid import batch")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInconsistentState  = errors.New("category must be set exactly when the transaction is resolved")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAccount)
	}
	if _, err := model.ParseAccountKind(string(account.Kind)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}
	return nil
}

func validateCategory(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: missing name", common.ErrInvalidCategory)
	}
	if category.Type != model.CategoryTypeIncome && category.Type != model.CategoryTypeExpense {
		return fmt.Errorf("%w: type must be income or expense, got %q", common.ErrInvalidCategory, category.Type)
	}
	return nil
}

func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.Pattern) == "" {
		return common.ErrEmptyPattern
	}
	if _, err := model.ParseMatchKind(string(rule.Kind)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidMatchKind, err)
	}
	if rule.Kind == model.MatchRegex {
		if _, err := common.CompileInsensitive(rule.Pattern); err != nil {
			return fmt.Errorf("%w: %w", common.ErrInvalidPattern, err)
		}
	}
	if rule.CategoryID == 0 {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	return nil
}

func validateImportBatch(batch *model.ImportBatch) error {
	if batch == nil {
		return fmt.Errorf("%w: import batch", ErrNilParameter)
	}
	if batch.AccountID == 0 {
		return fmt.Errorf("%w: missing account", ErrInvalidImport)
	}
	if batch.Fingerprint == "" {
		return fmt.Errorf("%w: missing fingerprint", ErrInvalidImport)
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.AccountID == 0 {
		return fmt.Errorf("%w: missing account", ErrInvalidTransaction)
	}
	if txn.Date == "" {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return validateState(txn.State())
}

func validateState(state model.TransactionState) error {
	if !state.Consistent() {
		return ErrInconsistentState
	}
	return nil
}

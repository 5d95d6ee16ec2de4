// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/tally/internal/model"
)

// Storage defines the contract for our persistence layer.
//
// Two uniqueness surfaces are part of the contract: import batches are unique
// on (account, fingerprint) and transactions are looked up for duplicates on
// (account, date, amount, description).
type Storage interface {
	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByName(ctx context.Context, name string) (*model.Account, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	DeactivateCategory(ctx context.Context, id int64) error

	// Rule operations
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
	GetRules(ctx context.Context) ([]model.Rule, error)
	DeactivateRule(ctx context.Context, id int64) error
	IncrementRuleHitCount(ctx context.Context, id int64) error

	// Import batch operations
	FindImportBatch(ctx context.Context, accountID int64, fingerprint string) (*model.ImportBatch, error)
	SaveImportBatch(ctx context.Context, batch *model.ImportBatch) error
	GetImportBatches(ctx context.Context) ([]model.ImportBatch, error)

	// Transaction operations
	TransactionExists(ctx context.Context, accountID int64, row model.ParsedRow) (bool, error)
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	GetUnresolvedTransactions(ctx context.Context) ([]model.Transaction, error)
	SetTransactionState(ctx context.Context, id int64, state model.TransactionState) error
	GetTransactionCount(ctx context.Context) (int, error)
	GetUnresolvedCount(ctx context.Context) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. Nothing written through it
// is visible to other readers until Commit.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// WithTx runs fn inside a transaction on store, committing when fn returns nil.
func WithTx(ctx context.Context, store Storage, fn func(tx Transaction) error) error {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

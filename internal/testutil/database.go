// Package testutil provides test fixtures for the ledger: a migrated
// database seeded with the default categories plus small builders for
// accounts, rules, transactions, and statement files.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
)

// TestDB is a migrated on-disk test database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated database in the test's temp dir.
// Default categories are seeded by the migrations; cleanup is automatic.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })

	return &TestDB{Storage: store, t: t}
}

// Account creates an account of the given kind.
func (db *TestDB) Account(name string, kind model.AccountKind) *model.Account {
	db.t.Helper()
	account := &model.Account{Name: name, Kind: kind, Institution: "Test Bank"}
	if err := db.Storage.CreateAccount(context.Background(), account); err != nil {
		db.t.Fatalf("failed to create account %q: %v", name, err)
	}
	return account
}

// CategoryID returns the ID of a seeded or created category.
func (db *TestDB) CategoryID(name string) int64 {
	db.t.Helper()
	cat, err := db.Storage.GetCategoryByName(context.Background(), name)
	if err != nil {
		db.t.Fatalf("failed to get category %q: %v", name, err)
	}
	return cat.ID
}

// Rule creates an active rule targeting the named category.
func (db *TestDB) Rule(pattern string, kind model.MatchKind, category string, priority int) *model.Rule {
	db.t.Helper()
	rule := &model.Rule{
		Pattern:    pattern,
		Kind:       kind,
		CategoryID: db.CategoryID(category),
		Priority:   priority,
	}
	if err := db.Storage.CreateRule(context.Background(), rule); err != nil {
		db.t.Fatalf("failed to create rule %q: %v", pattern, err)
	}
	return rule
}

// Unresolved inserts an unresolved transaction directly, bypassing ingestion.
func (db *TestDB) Unresolved(accountID int64, date, description, amount string) *model.Transaction {
	db.t.Helper()
	txn := &model.Transaction{
		AccountID:        accountID,
		Date:             date,
		Description:      description,
		Amount:           decimal.RequireFromString(amount),
		Unresolved:       true,
		UnresolvedReason: model.ReasonNoMatchingRule,
	}
	if err := db.Storage.InsertTransaction(context.Background(), txn); err != nil {
		db.t.Fatalf("failed to insert transaction %q: %v", description, err)
	}
	return txn
}

// Transaction reloads a transaction by ID.
func (db *TestDB) Transaction(id int64) *model.Transaction {
	db.t.Helper()
	txn, err := db.Storage.GetTransaction(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to get transaction %d: %v", id, err)
	}
	return txn
}

// WriteFile writes content to name inside a fresh temp dir and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}

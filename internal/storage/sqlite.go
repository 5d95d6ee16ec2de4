package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: there is a single writer and an in-memory database
	// must not be split across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// NewCheckpointManager creates a new checkpoint manager for this storage instance.
func (s *SQLiteStorage) NewCheckpointManager(maxAuto int) (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath, maxAuto)
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

// Transaction methods delegate to the shared implementations with the transaction.

func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateAccount(account); err != nil {
		return err
	}
	return t.storage.createAccountTx(ctx, t.tx, account)
}

func (t *sqliteTransaction) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	return t.storage.getAccountByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) GetAccounts(ctx context.Context) ([]model.Account, error) {
	return t.storage.getAccountsTx(ctx, t.tx)
}

func (t *sqliteTransaction) GetCategories(ctx context.Context) ([]model.Category, error) {
	return t.storage.getCategoriesTx(ctx, t.tx)
}

func (t *sqliteTransaction) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	return t.storage.getCategoryByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	return t.storage.getCategoryByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateCategory(category); err != nil {
		return err
	}
	return t.storage.createCategoryTx(ctx, t.tx, category)
}

func (t *sqliteTransaction) DeactivateCategory(ctx context.Context, id int64) error {
	return t.storage.deactivateCategoryTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	return t.storage.createRuleTx(ctx, t.tx, rule)
}

func (t *sqliteTransaction) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	return t.storage.getRuleTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	return t.storage.getRulesTx(ctx, t.tx, true)
}

func (t *sqliteTransaction) GetRules(ctx context.Context) ([]model.Rule, error) {
	return t.storage.getRulesTx(ctx, t.tx, false)
}

func (t *sqliteTransaction) DeactivateRule(ctx context.Context, id int64) error {
	return t.storage.deactivateRuleTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) IncrementRuleHitCount(ctx context.Context, id int64) error {
	return t.storage.incrementRuleHitCountTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) FindImportBatch(ctx context.Context, accountID int64, fingerprint string) (*model.ImportBatch, error) {
	return t.storage.findImportBatchTx(ctx, t.tx, accountID, fingerprint)
}

func (t *sqliteTransaction) SaveImportBatch(ctx context.Context, batch *model.ImportBatch) error {
	if err := validateImportBatch(batch); err != nil {
		return err
	}
	return t.storage.saveImportBatchTx(ctx, t.tx, batch)
}

func (t *sqliteTransaction) GetImportBatches(ctx context.Context) ([]model.ImportBatch, error) {
	return t.storage.getImportBatchesTx(ctx, t.tx)
}

func (t *sqliteTransaction) TransactionExists(ctx context.Context, accountID int64, row model.ParsedRow) (bool, error) {
	return t.storage.transactionExistsTx(ctx, t.tx, accountID, row)
}

func (t *sqliteTransaction) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return t.storage.insertTransactionTx(ctx, t.tx, txn)
}

func (t *sqliteTransaction) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	return t.storage.getTransactionTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetUnresolvedTransactions(ctx context.Context) ([]model.Transaction, error) {
	return t.storage.getUnresolvedTransactionsTx(ctx, t.tx)
}

func (t *sqliteTransaction) SetTransactionState(ctx context.Context, id int64, state model.TransactionState) error {
	if err := validateState(state); err != nil {
		return err
	}
	return t.storage.setTransactionStateTx(ctx, t.tx, id, state)
}

func (t *sqliteTransaction) GetTransactionCount(ctx context.Context) (int, error) {
	return t.storage.countTx(ctx, t.tx, "SELECT COUNT(*) FROM transactions")
}

func (t *sqliteTransaction) GetUnresolvedCount(ctx context.Context) (int, error) {
	return t.storage.countTx(ctx, t.tx, "SELECT COUNT(*) FROM transactions WHERE unresolved = 1")
}

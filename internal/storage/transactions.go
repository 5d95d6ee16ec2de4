package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

const transactionSelect = `
	SELECT t.id, t.account_id, a.name, t.date, t.description, t.amount, t.category_id,
	       t.vendor, t.unresolved, t.unresolved_reason, t.import_id, t.created_at
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id`

// formatAmount renders the canonical stored form of an amount: the exact
// value with trailing fractional zeros dropped, so -4.5 and -4.50 share a key
// and sub-cent amounts are never rounded.
func formatAmount(d decimal.Decimal) string {
	return d.String()
}

// TransactionExists reports whether the account already holds a transaction
// with the row's exact date, amount, and description.
func (s *SQLiteStorage) TransactionExists(ctx context.Context, accountID int64, row model.ParsedRow) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	return s.transactionExistsTx(ctx, s.db, accountID, row)
}

func (s *SQLiteStorage) transactionExistsTx(ctx context.Context, q queryable, accountID int64, row model.ParsedRow) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `
		SELECT 1 FROM transactions
		WHERE account_id = ? AND date = ? AND amount = ? AND description = ?
		LIMIT 1
	`, accountID, row.Date, formatAmount(row.Amount), row.Description).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate transaction: %w", err)
	}
	return true, nil
}

// InsertTransaction stores a new transaction and sets its ID.
func (s *SQLiteStorage) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return s.insertTransactionTx(ctx, s.db, txn)
}

func (s *SQLiteStorage) insertTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO transactions (account_id, date, description, amount, category_id, vendor, unresolved, unresolved_reason, import_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.AccountID, txn.Date, txn.Description, formatAmount(txn.Amount), txn.CategoryID,
		nullIfEmpty(txn.Vendor), txn.Unresolved, nullIfEmpty(txn.UnresolvedReason), txn.ImportID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transaction %s %s %q", common.ErrDuplicateEntry, txn.Date, formatAmount(txn.Amount), txn.Description)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction ID: %w", err)
	}
	txn.ID = id
	return nil
}

// GetTransaction returns a single transaction.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getTransactionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getTransactionTx(ctx context.Context, q queryable, id int64) (*model.Transaction, error) {
	txn, err := scanTransaction(q.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// GetUnresolvedTransactions returns unresolved transactions in ledger order.
func (s *SQLiteStorage) GetUnresolvedTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getUnresolvedTransactionsTx(ctx, s.db)
}

func (s *SQLiteStorage) getUnresolvedTransactionsTx(ctx context.Context, q queryable) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, transactionSelect+` WHERE t.unresolved = 1 ORDER BY t.date, t.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	slog.Debug("retrieved unresolved transactions", "count", len(txns))
	return txns, nil
}

// SetTransactionState overwrites the classification fields of a transaction
// in a single statement.
func (s *SQLiteStorage) SetTransactionState(ctx context.Context, id int64, state model.TransactionState) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateState(state); err != nil {
		return err
	}
	return s.setTransactionStateTx(ctx, s.db, id, state)
}

func (s *SQLiteStorage) setTransactionStateTx(ctx context.Context, q queryable, id int64, state model.TransactionState) error {
	result, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET category_id = ?, vendor = ?, unresolved = ?, unresolved_reason = ?
		WHERE id = ?
	`, state.CategoryID, nullIfEmpty(state.Vendor), state.Unresolved, nullIfEmpty(state.UnresolvedReason), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction state: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("transaction %d", id))
}

// GetTransactionCount returns the number of transactions in the ledger.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.countTx(ctx, s.db, "SELECT COUNT(*) FROM transactions")
}

// GetUnresolvedCount returns the number of unresolved transactions.
func (s *SQLiteStorage) GetUnresolvedCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.countTx(ctx, s.db, "SELECT COUNT(*) FROM transactions WHERE unresolved = 1")
}

func (s *SQLiteStorage) countTx(ctx context.Context, q queryable, query string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

func scanTransaction(sc scanner) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		amount     string
		categoryID sql.NullInt64
		vendor     sql.NullString
		reason     sql.NullString
		importID   sql.NullInt64
	)
	if err := sc.Scan(&txn.ID, &txn.AccountID, &txn.AccountName, &txn.Date, &txn.Description, &amount,
		&categoryID, &vendor, &txn.Unresolved, &reason, &importID, &txn.CreatedAt); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	txn.Amount = d
	if categoryID.Valid {
		id := categoryID.Int64
		txn.CategoryID = &id
	}
	if importID.Valid {
		id := importID.Int64
		txn.ImportID = &id
	}
	txn.Vendor = vendor.String
	txn.UnresolvedReason = reason.String
	return &txn, nil
}

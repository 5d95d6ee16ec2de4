package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// CreateAccount inserts a new account and sets its ID.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	return s.createAccountTx(ctx, s.db, account)
}

func (s *SQLiteStorage) createAccountTx(ctx context.Context, q queryable, account *model.Account) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO accounts (name, account_type, institution, last_four)
		VALUES (?, ?, ?, ?)
	`, strings.TrimSpace(account.Name), string(account.Kind), nullIfEmpty(account.Institution), nullIfEmpty(account.LastFour))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %q", common.ErrDuplicateEntry, account.Name)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account ID: %w", err)
	}
	account.ID = id
	return nil
}

// GetAccountByName returns the account with the given display name.
func (s *SQLiteStorage) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccountByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getAccountByNameTx(ctx context.Context, q queryable, name string) (*model.Account, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, account_type, institution, last_four, created_at
		FROM accounts WHERE name = ?
	`, name)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownAccount, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetAccounts lists every account by name.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccountsTx(ctx, s.db)
}

func (s *SQLiteStorage) getAccountsTx(ctx context.Context, q queryable) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, account_type, institution, last_four, created_at
		FROM accounts ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(sc scanner) (*model.Account, error) {
	var (
		account     model.Account
		kind        string
		institution sql.NullString
		lastFour    sql.NullString
	)
	if err := sc.Scan(&account.ID, &account.Name, &kind, &institution, &lastFour, &account.CreatedAt); err != nil {
		return nil, err
	}
	account.Kind = model.AccountKind(kind)
	account.Institution = institution.String
	account.LastFour = lastFour.String
	return &account, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package app

import (
	"context"
	"fmt"
)

// Status summarizes the ledger's contents.
type Status struct {
	DatabasePath  string
	Transactions  int
	Unresolved    int
	ActiveRules   int
	ImportBatches int
	Accounts      int
	SchemaVersion int
}

// Status counts what the ledger holds.
func (a *App) Status(ctx context.Context) (*Status, error) {
	s := &Status{DatabasePath: a.Store.Path()}

	var err error
	if s.Transactions, err = a.Store.GetTransactionCount(ctx); err != nil {
		return nil, err
	}
	if s.Unresolved, err = a.Store.GetUnresolvedCount(ctx); err != nil {
		return nil, err
	}

	rules, err := a.Store.GetActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	s.ActiveRules = len(rules)

	batches, err := a.Store.GetImportBatches(ctx)
	if err != nil {
		return nil, err
	}
	s.ImportBatches = len(batches)

	accounts, err := a.Store.GetAccounts(ctx)
	if err != nil {
		return nil, err
	}
	s.Accounts = len(accounts)

	if s.SchemaVersion, err = a.Store.SchemaVersion(ctx); err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	return s, nil
}

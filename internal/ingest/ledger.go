// Package ingest records statement files into the ledger exactly once.
//
// Idempotence holds at two granularities. A file whose content fingerprint
// was already imported into the same account is a no-op, and rows that
// duplicate an existing (account, date, amount, description) tuple are
// skipped, so overlapping statements only contribute novel rows.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/format"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// ImportOutcome reports what one ingest did.
type ImportOutcome struct {
	Format    string
	Imported  int
	Skipped   int // rows already present in the account
	Malformed int // rows the parser dropped
	BatchID   int64
	// DuplicateFile is set when the same file was imported into the account before.
	DuplicateFile bool
}

// Ledger ingests statement files through a format registry.
type Ledger struct {
	storage  service.Storage
	registry *format.Registry
}

// NewLedger creates a ledger backed by storage.
func NewLedger(storage service.Storage, registry *format.Registry) *Ledger {
	return &Ledger{storage: storage, registry: registry}
}

// Fingerprint returns the hex SHA-256 of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Ingest imports the file at path into the named account. formatKey forces a
// format when non-empty. Parse and resolution errors abort before anything
// is written; the batch record, inserted rows and any post-import hook
// commit together.
func (l *Ledger) Ingest(ctx context.Context, path, accountName, formatKey string) (*ImportOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fingerprint := Fingerprint(data)

	account, err := l.storage.GetAccountByName(ctx, accountName)
	if err != nil {
		return nil, err
	}

	existing, err := l.storage.FindImportBatch(ctx, account.ID, fingerprint)
	switch {
	case err == nil:
		slog.Info("File already imported",
			"file", path,
			"account", account.Name,
			"batch_id", existing.ID,
			"imported_at", existing.ImportedAt)
		return &ImportOutcome{DuplicateFile: true, Format: existing.Format, BatchID: existing.ID}, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("failed to check import history: %w", err)
	}

	f, err := l.registry.Resolve(path, account.Kind, formatKey)
	if err != nil {
		return nil, err
	}
	parsed, err := f.Parse(path)
	if err != nil {
		return nil, err
	}

	outcome := &ImportOutcome{Format: f.Key, Malformed: parsed.Skipped}
	start, end := parsed.DateRange()

	err = service.WithTx(ctx, l.storage, func(tx service.Transaction) error {
		batch := &model.ImportBatch{
			AccountID:   account.ID,
			Filename:    filepath.Base(path),
			Fingerprint: fingerprint,
			Format:      f.Key,
			RecordCount: len(parsed.Rows),
			DateStart:   start,
			DateEnd:     end,
		}
		if err := tx.SaveImportBatch(ctx, batch); err != nil {
			return err
		}
		outcome.BatchID = batch.ID

		inserted := make([]model.Transaction, 0, len(parsed.Rows))
		for _, row := range parsed.Rows {
			exists, err := tx.TransactionExists(ctx, account.ID, row)
			if err != nil {
				return err
			}
			if exists {
				outcome.Skipped++
				continue
			}

			txn := &model.Transaction{
				AccountID:        account.ID,
				ImportID:         &batch.ID,
				Date:             row.Date,
				Description:      row.Description,
				Amount:           row.Amount,
				Unresolved:       true,
				UnresolvedReason: model.ReasonNoMatchingRule,
			}
			if err := tx.InsertTransaction(ctx, txn); err != nil {
				return fmt.Errorf("failed to insert %s %q: %w", row.Date, row.Description, err)
			}
			inserted = append(inserted, *txn)
		}
		outcome.Imported = len(inserted)

		if f.PostImport != nil && len(inserted) > 0 {
			if err := f.PostImport(ctx, tx, inserted); err != nil {
				return fmt.Errorf("%s post-import: %w", f.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Import complete",
		"file", path,
		"account", account.Name,
		"format", outcome.Format,
		"imported", outcome.Imported,
		"skipped", outcome.Skipped,
		"malformed", outcome.Malformed)
	return outcome, nil
}

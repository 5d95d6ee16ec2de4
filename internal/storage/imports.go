package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

const importColumns = `id, filename, account_id, format, imported_at, record_count, date_range_start, date_range_end, checksum`

// FindImportBatch returns the batch recorded for fingerprint in the account,
// or an error wrapping common.ErrNotFound.
func (s *SQLiteStorage) FindImportBatch(ctx context.Context, accountID int64, fingerprint string) (*model.ImportBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.findImportBatchTx(ctx, s.db, accountID, fingerprint)
}

func (s *SQLiteStorage) findImportBatchTx(ctx context.Context, q queryable, accountID int64, fingerprint string) (*model.ImportBatch, error) {
	row := q.QueryRowContext(ctx, `SELECT `+importColumns+` FROM imports WHERE account_id = ? AND checksum = ?`,
		accountID, fingerprint)
	batch, err := scanImportBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import batch: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find import batch: %w", err)
	}
	return batch, nil
}

// SaveImportBatch records an ingestion event and sets its ID.
func (s *SQLiteStorage) SaveImportBatch(ctx context.Context, batch *model.ImportBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateImportBatch(batch); err != nil {
		return err
	}
	return s.saveImportBatchTx(ctx, s.db, batch)
}

func (s *SQLiteStorage) saveImportBatchTx(ctx context.Context, q queryable, batch *model.ImportBatch) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO imports (filename, account_id, format, record_count, date_range_start, date_range_end, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, batch.Filename, batch.AccountID, batch.Format, batch.RecordCount,
		nullIfEmpty(batch.DateStart), nullIfEmpty(batch.DateEnd), batch.Fingerprint)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: import batch %s", common.ErrDuplicateEntry, batch.Fingerprint)
		}
		return fmt.Errorf("failed to save import batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get import batch ID: %w", err)
	}
	batch.ID = id
	return nil
}

// GetImportBatches lists every import batch, newest first.
func (s *SQLiteStorage) GetImportBatches(ctx context.Context) ([]model.ImportBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getImportBatchesTx(ctx, s.db)
}

func (s *SQLiteStorage) getImportBatchesTx(ctx context.Context, q queryable) ([]model.ImportBatch, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+importColumns+` FROM imports ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query import batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []model.ImportBatch
	for rows.Next() {
		batch, err := scanImportBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		batches = append(batches, *batch)
	}
	return batches, rows.Err()
}

func scanImportBatch(sc scanner) (*model.ImportBatch, error) {
	var (
		batch      model.ImportBatch
		start, end sql.NullString
	)
	if err := sc.Scan(&batch.ID, &batch.Filename, &batch.AccountID, &batch.Format, &batch.ImportedAt,
		&batch.RecordCount, &start, &end, &batch.Fingerprint); err != nil {
		return nil, err
	}
	batch.DateStart = start.String
	batch.DateEnd = end.String
	return &batch, nil
}

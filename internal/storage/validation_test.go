package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/tally/internal/model"
)

func TestValidateContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, validateContext(nil), ErrNilContext)
	assert.NoError(t, validateContext(context.Background()))
}

func TestValidateTransaction(t *testing.T) {
	cat := int64(3)
	tests := []struct {
		txn     *model.Transaction
		wantErr error
		name    string
	}{
		{name: "nil", txn: nil, wantErr: ErrNilParameter},
		{name: "missing account", txn: &model.Transaction{Date: "2025-01-01", Unresolved: true}, wantErr: ErrInvalidTransaction},
		{name: "missing date", txn: &model.Transaction{AccountID: 1, Unresolved: true}, wantErr: ErrInvalidTransaction},
		{name: "resolved without category", txn: &model.Transaction{AccountID: 1, Date: "2025-01-01"}, wantErr: ErrInconsistentState},
		{name: "unresolved with category", txn: &model.Transaction{AccountID: 1, Date: "2025-01-01", CategoryID: &cat, Unresolved: true}, wantErr: ErrInconsistentState},
		{name: "valid unresolved", txn: &model.Transaction{AccountID: 1, Date: "2025-01-01", Amount: decimal.NewFromInt(-5), Unresolved: true}},
		{name: "valid resolved", txn: &model.Transaction{AccountID: 1, Date: "2025-01-01", CategoryID: &cat}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTransaction(tt.txn)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateImportBatch(t *testing.T) {
	assert.ErrorIs(t, validateImportBatch(nil), ErrNilParameter)
	assert.ErrorIs(t, validateImportBatch(&model.ImportBatch{Fingerprint: "x"}), ErrInvalidImport)
	assert.ErrorIs(t, validateImportBatch(&model.ImportBatch{AccountID: 1}), ErrInvalidImport)
	assert.NoError(t, validateImportBatch(&model.ImportBatch{AccountID: 1, Fingerprint: "x"}))
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ImportBatch records one ingestion event.
// Fingerprint is unique per account.
type ImportBatch struct {
	ImportedAt  time.Time
	Filename    string
	Fingerprint string
	Format      string
	DateStart   string
	DateEnd     string
	ID          int64
	AccountID   int64
	RecordCount int
}

// ParsedRow is the canonical record every format parser emits.
// Date is a valid ISO calendar date, Description is trimmed and keeps its
// source casing, and Amount follows the ledger sign (negative = outflow).
type ParsedRow struct {
	Date        string
	Description string
	Amount      decimal.Decimal
}

// ParsedFile is the result of parsing one source file.
// Skipped counts data rows that were dropped as malformed.
type ParsedFile struct {
	Rows    []ParsedRow
	Skipped int
}

// DateRange returns the lowest and highest row dates.
func (p *ParsedFile) DateRange() (start, end string) {
	for i, r := range p.Rows {
		if i == 0 || r.Date < start {
			start = r.Date
		}
		if i == 0 || r.Date > end {
			end = r.Date
		}
	}
	return start, end
}

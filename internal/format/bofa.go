package format

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Bank of America exports carry a summary preamble before the header row.
const (
	cardHolderMarker  = "CardHolder Name"
	postingDateHeader = "Posting Date"
	beginningBalance  = "Beginning balance"
)

func isCheckingHeader(rec []string) bool {
	return len(rec) >= 4 && strings.TrimSpace(rec[0]) == "Date" && strings.Contains(rec[1], "Description")
}

func detectBofAChecking(path string) bool {
	for _, rec := range sniffRecords(path) {
		if isCheckingHeader(rec) {
			return true
		}
	}
	return false
}

// parseBofAChecking reads a checking export. Amounts are already signed.
func parseBofAChecking(path string) (*model.ParsedFile, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	out := &model.ParsedFile{}
	header := -1
	for i, rec := range records {
		if header < 0 {
			if isCheckingHeader(rec) {
				header = i
			}
			continue
		}
		if len(rec) < 3 || strings.TrimSpace(rec[0]) == "" {
			continue
		}

		description := strings.TrimSpace(rec[1])
		if description == "" || strings.Contains(description, beginningBalance) {
			continue
		}

		date, err := ParseDateMDY(rec[0])
		if err != nil {
			out.Skipped++
			slog.Debug("dropping malformed row", "file", path, "line", i+1, "error", err)
			continue
		}
		amount, err := ParseAmount(rec[2])
		if err != nil {
			out.Skipped++
			slog.Debug("dropping malformed row", "file", path, "line", i+1, "error", err)
			continue
		}

		out.Rows = append(out.Rows, model.ParsedRow{Date: date, Description: description, Amount: amount})
	}

	if header < 0 {
		return nil, common.Malformed(path, "no Date,Description header row")
	}
	return out, nil
}

func detectBofACreditCard(path string) bool {
	return bytes.Contains(sniff(path), []byte(cardHolderMarker))
}

func detectBofALineOfCredit(path string) bool {
	head := sniff(path)
	return bytes.Contains(head, []byte(postingDateHeader)) && !bytes.Contains(head, []byte(cardHolderMarker))
}

// postingColumns locates the named columns of a posting-date export.
type postingColumns struct {
	date, payee, amount, kind int
}

func (c postingColumns) width() int {
	return max(c.date, c.payee, c.amount, c.kind) + 1
}

// findPostingHeader reports whether rec is the header row and, if so, updates
// cols from it. Preamble rows never touch cols.
func findPostingHeader(rec []string, cols *postingColumns) bool {
	found := slices.ContainsFunc(rec, func(f string) bool {
		return strings.TrimSpace(f) == postingDateHeader
	})
	if !found {
		return false
	}

	for i, f := range rec {
		switch strings.TrimSpace(f) {
		case postingDateHeader:
			cols.date = i
		case "Payee":
			cols.payee = i
		case "Amount":
			cols.amount = i
		case "Type":
			cols.kind = i
		}
	}
	return true
}

// parsePostingExport reads credit card and line of credit exports, which
// share the posting-date layout and differ only in how the sign is derived.
func parsePostingExport(path string, defaults postingColumns, toRow func(rec []string, cols postingColumns, raw string) (model.ParsedRow, error)) (*model.ParsedFile, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	cols := defaults
	out := &model.ParsedFile{}
	header := false
	for i, rec := range records {
		if !header {
			header = findPostingHeader(rec, &cols)
			continue
		}
		if len(rec) < cols.width() || blank(rec) || strings.TrimSpace(rec[cols.date]) == "" {
			continue
		}

		row, err := toRow(rec, cols, rec[cols.amount])
		if err != nil {
			out.Skipped++
			slog.Debug("dropping malformed row", "file", path, "line", i+1, "error", err)
			continue
		}
		out.Rows = append(out.Rows, row)
	}

	if !header {
		return nil, common.Malformed(path, "no %s header row", postingDateHeader)
	}
	return out, nil
}

func postingRow(rec []string, cols postingColumns, raw string) (model.ParsedRow, error) {
	date, err := ParseDateMDY(rec[cols.date])
	if err != nil {
		return model.ParsedRow{}, err
	}
	amount, err := ParseAmount(raw)
	if err != nil {
		return model.ParsedRow{}, err
	}
	return model.ParsedRow{Date: date, Description: strings.TrimSpace(rec[cols.payee]), Amount: amount}, nil
}

// parseBofACreditCard reads a card export. The Type column decides the sign:
// "D" is a debit (outflow), anything else a credit.
func parseBofACreditCard(path string) (*model.ParsedFile, error) {
	return parsePostingExport(path, postingColumns{date: 3, payee: 5, amount: 6, kind: 9},
		func(rec []string, cols postingColumns, raw string) (model.ParsedRow, error) {
			row, err := postingRow(rec, cols, raw)
			if err != nil {
				return row, err
			}
			if strings.TrimSpace(rec[cols.kind]) == "D" {
				row.Amount = row.Amount.Abs().Neg()
			} else {
				row.Amount = row.Amount.Abs()
			}
			return row, nil
		})
}

// parseBofALineOfCredit reads a line of credit export, whose amounts are
// balance deltas: a draw is positive in the source and an outflow here.
func parseBofALineOfCredit(path string) (*model.ParsedFile, error) {
	return parsePostingExport(path, postingColumns{date: 3, payee: 5, amount: 6},
		func(rec []string, cols postingColumns, raw string) (model.ParsedRow, error) {
			row, err := postingRow(rec, cols, raw)
			if err != nil {
				return row, err
			}
			row.Amount = row.Amount.Neg()
			return row, nil
		})
}

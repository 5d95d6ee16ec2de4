package format

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// Gusto payroll workbook layout.
const (
	payrollsSheet    = "payrolls"
	taxesSheet       = "taxes"
	gustoColDate     = 3
	gustoColTaxType  = 6
	gustoColAmount   = 7
	gustoEmployerTax = "Employer"

	// Payroll categories assigned on import.
	CategoryPayrollWages    = "Payroll — Wages"
	CategoryPayrollTaxes    = "Payroll — Taxes"
	CategoryPayrollBenefits = "Payroll — Benefits"
)

func detectGustoPayroll(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return false
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	return slices.Contains(f.GetSheetList(), payrollsSheet)
}

// parseGustoPayroll sums gross wages and employer taxes per check date and
// emits one outflow row per date and kind.
func parseGustoPayroll(path string) (*model.ParsedFile, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, common.Malformed(path, "opening workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if !slices.Contains(sheets, payrollsSheet) {
		return nil, common.Malformed(path, "no %q sheet", payrollsSheet)
	}

	out := &model.ParsedFile{}
	wages, err := sumByCheckDate(f, payrollsSheet, nil, out)
	if err != nil {
		return nil, common.Malformed(path, "reading %s: %v", payrollsSheet, err)
	}

	taxes := map[string]decimal.Decimal{}
	if slices.Contains(sheets, taxesSheet) {
		employer := func(row []string) bool {
			return len(row) > gustoColTaxType && strings.TrimSpace(row[gustoColTaxType]) == gustoEmployerTax
		}
		taxes, err = sumByCheckDate(f, taxesSheet, employer, out)
		if err != nil {
			return nil, common.Malformed(path, "reading %s: %v", taxesSheet, err)
		}
	}

	emit := func(totals map[string]decimal.Decimal, label string) {
		dates := make([]string, 0, len(totals))
		for d := range totals {
			dates = append(dates, d)
		}
		slices.Sort(dates)
		for _, d := range dates {
			out.Rows = append(out.Rows, model.ParsedRow{
				Date:        d,
				Description: fmt.Sprintf("Payroll — %s (%s)", label, d),
				Amount:      totals[d].Abs().Neg(),
			})
		}
	}
	emit(wages, "Wages")
	emit(taxes, "Employer Taxes")
	return out, nil
}

// sumByCheckDate totals the amount column of sheet by check date, skipping
// the header row and rows keep rejects.
func sumByCheckDate(f *excelize.File, sheet string, keep func([]string) bool, out *model.ParsedFile) (map[string]decimal.Decimal, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	totals := map[string]decimal.Decimal{}
	for i, row := range rows {
		if i == 0 || len(row) <= gustoColAmount || blank(row) {
			continue
		}
		if keep != nil && !keep(row) {
			continue
		}
		date, ok := checkDate(row[gustoColDate])
		if !ok {
			out.Skipped++
			slog.Debug("dropping malformed payroll row", "sheet", sheet, "row", i+1, "value", row[gustoColDate])
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(row[gustoColAmount]))
		if err != nil {
			out.Skipped++
			slog.Debug("dropping malformed payroll row", "sheet", sheet, "row", i+1, "error", err)
			continue
		}
		totals[date] = totals[date].Add(amount)
	}
	return totals, nil
}

// checkDate reads a date cell stored either as a serial number or as text.
func checkDate(cell string) (string, bool) {
	if serial, ok := parseFloatCell(cell); ok {
		return ExcelSerialToDate(serial), true
	}
	cell = strings.TrimSpace(cell)
	if t, err := time.Parse(model.DateLayout, cell); err == nil {
		return t.Format(model.DateLayout), true
	}
	if d, err := ParseDateMDY(cell); err == nil {
		return d, true
	}
	return "", false
}

// assignPayrollCategories resolves freshly imported payroll rows into the
// payroll categories. Rows whose category is missing or inactive stay unresolved.
func assignPayrollCategories(ctx context.Context, tx service.Transaction, inserted []model.Transaction) error {
	ids := map[string]int64{}
	for _, name := range []string{CategoryPayrollWages, CategoryPayrollTaxes, CategoryPayrollBenefits} {
		cat, err := tx.GetCategoryByName(ctx, name)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !cat.IsActive {
			continue
		}
		ids[name] = cat.ID
	}

	for _, txn := range inserted {
		var name string
		switch {
		case strings.Contains(txn.Description, "Wages"):
			name = CategoryPayrollWages
		case strings.Contains(txn.Description, "Taxes"):
			name = CategoryPayrollTaxes
		case strings.Contains(txn.Description, "Benefits"):
			name = CategoryPayrollBenefits
		default:
			continue
		}
		id, ok := ids[name]
		if !ok {
			continue
		}
		if err := tx.SetTransactionState(ctx, txn.ID, model.Resolved(id, "Gusto")); err != nil {
			return fmt.Errorf("assigning %s to transaction %d: %w", name, txn.ID, err)
		}
	}
	return nil
}

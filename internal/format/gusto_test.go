package format

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/tally/internal/common"
)

// writeWorkbook saves a workbook whose sheets hold the given rows.
func writeWorkbook(t *testing.T, name string, sheets map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := true
	for sheet, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
			first = false
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func payrollWorkbook(t *testing.T) string {
	t.Helper()
	header := []any{"id", "start", "end", "check_date", "employee", "hours", "type", "gross"}
	return writeWorkbook(t, "gusto.xlsx", map[string][][]any{
		payrollsSheet: {
			header,
			{1, "", "", 45667, "Ada", 80, "Regular", 3000.50},
			{2, "", "", 45667, "Grace", 80, "Regular", 2500},
			{3, "", "", "2025-01-24", "Ada", 80, "Regular", 3000.50},
			{4, "", "", "someday", "Ada", 80, "Regular", 1},
		},
		taxesSheet: {
			header,
			{1, "", "", 45667, "Ada", "FICA", "Employer", 229.54},
			{2, "", "", 45667, "Ada", "FICA", "Employee", 229.54},
			{3, "", "", 45667, "Grace", "FUTA", "Employer", 15},
		},
	})
}

func TestGustoPayroll(t *testing.T) {
	path := payrollWorkbook(t)
	assert.True(t, detectGustoPayroll(path))

	parsed, err := parseGustoPayroll(path)
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.Skipped)
	require.Len(t, parsed.Rows, 3)

	assert.Equal(t, "2025-01-10", parsed.Rows[0].Date)
	assert.Equal(t, "Payroll — Wages (2025-01-10)", parsed.Rows[0].Description)
	assert.Equal(t, "-5500.50", parsed.Rows[0].Amount.StringFixed(2))

	assert.Equal(t, "Payroll — Wages (2025-01-24)", parsed.Rows[1].Description)
	assert.Equal(t, "-3000.50", parsed.Rows[1].Amount.StringFixed(2))

	assert.Equal(t, "Payroll — Employer Taxes (2025-01-10)", parsed.Rows[2].Description)
	assert.Equal(t, "-244.54", parsed.Rows[2].Amount.StringFixed(2))
}

func TestGustoPayroll_NotAWorkbook(t *testing.T) {
	csv := writeFile(t, "payroll.csv", "a,b,c\n")
	assert.False(t, detectGustoPayroll(csv))

	other := writeWorkbook(t, "other.xlsx", map[string][][]any{"summary": {{"x"}}})
	assert.False(t, detectGustoPayroll(other))

	_, err := parseGustoPayroll(other)
	assert.ErrorIs(t, err, common.ErrMalformedSource)
}

package format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "1,234.56", want: "1234.56"},
		{raw: `"500.00"`, want: "500"},
		{raw: "  -42.50  ", want: "-42.5"},
		{raw: "0", want: "0"},
		{raw: "(500.00)", want: "-500"},
		{raw: "(1,234.56)", want: "-1234.56"},
		{raw: `"(50.00)"`, want: "-50"},
		{raw: "$1,234.56", want: "1234.56"},
		{raw: "-$50.00", want: "-50"},
		{raw: "", wantErr: true},
		{raw: "not_a_number", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParseDateMDY(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "01/15/2025", want: "2025-01-15"},
		{raw: "12/01/2024", want: "2024-12-01"},
		{raw: "1/5/2025", want: "2025-01-05"},
		{raw: " 02/28/2025 ", want: "2025-02-28"},
		{raw: "invalid"},
		{raw: "2025-01-15"},
		{raw: "13/01/2025"},
		{raw: "02/30/2025"},
		{raw: "00/15/2025"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDateMDY(tt.raw)
			if tt.want == "" {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExcelSerialToDate(t *testing.T) {
	assert.Equal(t, "2025-01-10", ExcelSerialToDate(45667))
	assert.Equal(t, "2025-01-10", ExcelSerialToDate(45667.75))
	assert.Equal(t, "1900-03-01", ExcelSerialToDate(61))
}

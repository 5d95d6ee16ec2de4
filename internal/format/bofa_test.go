package format

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

const checkingCSV = `Description,,Summary Amt.
Beginning balance as of 01/01/2025,,"1,000.00"
Total credits,,"2,500.00"
Ending balance as of 01/31/2025,,"3,100.00"

Date,Description,Amount,Running Bal.
01/01/2025,Beginning balance as of 01/01/2025,,"1,000.00"
01/03/2025,  GitHub Inc  ,-4.00,996.00
01/10/2025,CLIENT PAYMENT ACME,"2,500.00","3,496.00"
02/30/2025,BAD DATE ROW,-1.00,0.00
01/12/2025,BAD AMOUNT ROW,abc,0.00
,,,
`

const creditCardCSV = `CardHolder Name,Account Number,Statement Period
JANE DOE,XXXX1234,January 2025

Status,Account,Reference Number,Posting Date,Transaction Date,Payee,Amount,Address,Category,Type
Posted,XXXX1234,24692165,01/05/2025,01/04/2025,DELTA AIR LINES,412.80,ATLANTA GA,Travel,D
Posted,XXXX1234,24692166,01/09/2025,01/08/2025,PAYMENT - THANK YOU,"1,000.00",,Payment,C
Posted,XXXX1234,24692167,01/11/2025,01/10/2025,REFUND STORE,-15.00,,Shopping,C
`

const lineOfCreditCSV = `Status,Account,Reference Number,Posting Date,Transaction Date,Payee,Amount
Posted,XXXX9999,1001,01/07/2025,01/07/2025,ADVANCE TO CHECKING,"5,000.00"
Posted,XXXX9999,1002,01/20/2025,01/20/2025,PAYMENT RECEIVED,-250.00
`

func amounts(rows []model.ParsedRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Amount.StringFixed(2)
	}
	return out
}

func TestBofAChecking(t *testing.T) {
	path := writeFile(t, "stmt.csv", checkingCSV)
	assert.True(t, detectBofAChecking(path))
	assert.False(t, detectBofACreditCard(path))

	parsed, err := parseBofAChecking(path)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, 2, parsed.Skipped, "bad date and bad amount rows are dropped")

	assert.Equal(t, model.ParsedRow{Date: "2025-01-03", Description: "GitHub Inc", Amount: parsed.Rows[0].Amount}, parsed.Rows[0])
	assert.Equal(t, []string{"-4.00", "2500.00"}, amounts(parsed.Rows))
}

func TestBofAChecking_MissingHeader(t *testing.T) {
	path := writeFile(t, "stmt.csv", "Posted,Thing,1.00\n")
	assert.False(t, detectBofAChecking(path))

	_, err := parseBofAChecking(path)
	assert.ErrorIs(t, err, common.ErrMalformedSource)
}

func TestBofACreditCard(t *testing.T) {
	path := writeFile(t, "card.csv", creditCardCSV)
	assert.True(t, detectBofACreditCard(path))
	assert.False(t, detectBofALineOfCredit(path))

	parsed, err := parseBofACreditCard(path)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 3)
	assert.Equal(t, "2025-01-05", parsed.Rows[0].Date)
	assert.Equal(t, "DELTA AIR LINES", parsed.Rows[0].Description)
	assert.Equal(t, []string{"-412.80", "1000.00", "15.00"}, amounts(parsed.Rows))
}

func TestBofACreditCard_MissingHeader(t *testing.T) {
	path := writeFile(t, "card.csv", "CardHolder Name\nJANE\n")
	_, err := parseBofACreditCard(path)
	assert.ErrorIs(t, err, common.ErrMalformedSource)
}

func TestBofALineOfCredit(t *testing.T) {
	path := writeFile(t, "loc.csv", lineOfCreditCSV)
	assert.True(t, detectBofALineOfCredit(path))

	parsed, err := parseBofALineOfCredit(path)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, []string{"-5000.00", "250.00"}, amounts(parsed.Rows))
	assert.True(t, parsed.Rows[0].Amount.Equal(decimal.RequireFromString("-5000")))
}

func TestFindPostingHeader(t *testing.T) {
	defaults := postingColumns{date: 3, payee: 5, amount: 6, kind: 9}

	tests := []struct {
		name  string
		rec   []string
		want  bool
		wantC postingColumns
	}{
		{
			name:  "preamble naming known columns",
			rec:   []string{"Type", "Amount", "Payee"},
			want:  false,
			wantC: defaults,
		},
		{
			name:  "header row",
			rec:   []string{"Posting Date", "Payee", "Amount", "Type"},
			want:  true,
			wantC: postingColumns{date: 0, payee: 1, amount: 2, kind: 3},
		},
		{
			name:  "header without type column",
			rec:   []string{"Status", " Posting Date ", "Payee", "Amount"},
			want:  true,
			wantC: postingColumns{date: 1, payee: 2, amount: 3, kind: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := defaults
			assert.Equal(t, tt.want, findPostingHeader(tt.rec, &cols))
			assert.Equal(t, tt.wantC, cols)
		})
	}
}

func TestBofACreditCard_PreambleDoesNotMoveColumns(t *testing.T) {
	path := writeFile(t, "card.csv", `CardHolder Name,Account Number,Type,Amount
JANE DOE,XXXX1234,Personal,0.00

Status,Account,Reference Number,Posting Date,Transaction Date,Payee,Amount,Address,Category,
Posted,XXXX1234,24692165,01/05/2025,01/04/2025,DELTA AIR LINES,412.80,ATLANTA GA,Travel,D
`)

	parsed, err := parseBofACreditCard(path)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "DELTA AIR LINES", parsed.Rows[0].Description)
	assert.Equal(t, []string{"-412.80"}, amounts(parsed.Rows), "the sign comes from the default Type column")
}

package testutil

import (
	"fmt"
	"strings"
)

// BofACheckingRow is one data line of a checking statement export.
type BofACheckingRow struct {
	Date        string // MM/DD/YYYY
	Description string
	Amount      string
}

// BofAChecking renders a checking export with the bank's summary preamble,
// a beginning balance row, and the given transactions.
func BofAChecking(rows ...BofACheckingRow) string {
	var b strings.Builder
	b.WriteString("Description,,Summary Amt.\n")
	b.WriteString("Beginning balance as of 01/01/2025,,\"1,000.00\"\n")
	b.WriteString("Total credits,,\"2,000.00\"\n")
	b.WriteString("\n")
	b.WriteString("Date,Description,Amount,Running Bal.\n")
	b.WriteString("01/01/2025,Beginning balance as of 01/01/2025,,\"1,000.00\"\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,%s,0.00\n", r.Date, r.Description, quoteAmount(r.Amount))
	}
	return b.String()
}

func quoteAmount(s string) string {
	if strings.Contains(s, ",") {
		return `"` + s + `"`
	}
	return s
}

// FiveRowStatement is a small checking statement used by end-to-end tests.
// Two descriptions mention GITHUB.
var FiveRowStatement = []BofACheckingRow{
	{Date: "01/03/2025", Description: "GITHUB INC", Amount: "-4.00"},
	{Date: "01/05/2025", Description: "STARBUCKS STORE 123", Amount: "-6.25"},
	{Date: "01/10/2025", Description: "CLIENT PAYMENT ACME", Amount: "2,500.00"},
	{Date: "01/12/2025", Description: "GITHUB SPONSORS", Amount: "-10.00"},
	{Date: "01/20/2025", Description: "DELTA AIR LINES", Amount: "-412.80"},
}

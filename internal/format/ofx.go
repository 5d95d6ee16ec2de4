package format

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

var (
	ofxSeverity = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// SGML exports sometimes drop the closing bracket of a bare opening tag.
	ofxOpenTag = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

func detectOFX(path string) bool {
	head := sniff(path)
	if len(head) > 1024 {
		head = head[:1024]
	}
	upper := bytes.ToUpper(head)
	return bytes.Contains(upper, []byte("OFXHEADER")) || bytes.Contains(upper, []byte("<OFX>"))
}

// normalizeOFX repairs formatting quirks that ofxgo rejects.
func normalizeOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = ofxSeverity.ReplaceAllStringFunc(content, strings.ToUpper)
	return ofxOpenTag.ReplaceAllString(content, "$1>")
}

// parseOFX reads bank and credit card statements from an OFX/QFX file.
// OFX amounts already use the ledger sign.
func parseOFX(path string) (*model.ParsedFile, error) {
	raw, err := os.ReadFile(path) // #nosec G304 - user-supplied statement path
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(normalizeOFX(string(raw))))
	if err != nil {
		return nil, common.Malformed(path, "parsing OFX: %v", err)
	}

	out := &model.ParsedFile{}
	statements := 0
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			statements++
			if stmt.BankTranList != nil {
				appendOFX(out, path, stmt.BankTranList.Transactions)
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			statements++
			if stmt.BankTranList != nil {
				appendOFX(out, path, stmt.BankTranList.Transactions)
			}
		}
	}

	if statements == 0 {
		return nil, common.Malformed(path, "no bank or credit card statements")
	}

	slog.Debug("parsed OFX file", "file", path, "statements", statements, "rows", len(out.Rows), "skipped", out.Skipped)
	return out, nil
}

func appendOFX(out *model.ParsedFile, path string, txns []ofxgo.Transaction) {
	for _, t := range txns {
		description := ofxDescription(t)
		amount, err := decimal.NewFromString(t.TrnAmt.FloatString(2))
		if description == "" || err != nil || t.DtPosted.IsZero() {
			out.Skipped++
			slog.Debug("dropping malformed OFX transaction", "file", path, "fitid", t.FiTID)
			continue
		}
		out.Rows = append(out.Rows, model.ParsedRow{
			Date:        t.DtPosted.Format(model.DateLayout),
			Description: description,
			Amount:      amount,
		})
	}
}

// ofxDescription prefers NAME, then MEMO, then the payee record.
func ofxDescription(t ofxgo.Transaction) string {
	if name := strings.TrimSpace(string(t.Name)); name != "" {
		return name
	}
	if memo := strings.TrimSpace(string(t.Memo)); memo != "" {
		return memo
	}
	if t.Payee != nil {
		return strings.TrimSpace(string(t.Payee.Name))
	}
	return ""
}

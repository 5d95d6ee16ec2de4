package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>1500.00
<FITID>2024012001
<NAME>PAYROLL DEPOSIT
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<MEMO>RENT JANUARY
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestOFX(t *testing.T) {
	path := writeFile(t, "stmt.qfx", sampleBankOFX)
	assert.True(t, detectOFX(path))
	assert.False(t, detectBofAChecking(path))

	parsed, err := parseOFX(path)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 3)
	assert.Zero(t, parsed.Skipped)

	assert.Equal(t, "2024-01-15", parsed.Rows[0].Date)
	assert.Equal(t, "STARBUCKS STORE #1234", parsed.Rows[0].Description)
	assert.Equal(t, []string{"-25.50", "1500.00", "-500.00"}, amounts(parsed.Rows))
	assert.Equal(t, "RENT JANUARY", parsed.Rows[2].Description)
}

func TestOFX_Malformed(t *testing.T) {
	path := writeFile(t, "broken.ofx", "<OFX>\n<garbage")
	assert.True(t, detectOFX(path))

	_, err := parseOFX(path)
	assert.ErrorIs(t, err, common.ErrMalformedSource)
}

func TestNormalizeOFX(t *testing.T) {
	in := "\n\n<SEVERITY>Info</SEVERITY>\n<CODE\n"
	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>\n<CODE>\n", normalizeOFX(in))
}

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"ID", "Pattern", "Hits"},
		[][]string{
			{"1", "github", "12"},
			{"22", "starbucks store", "3"},
			{"3"},
		},
	)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "starbucks store")

	// Columns line up: every pattern starts at the same offset.
	offset := strings.Index(lines[0], "Pattern")
	assert.Equal(t, offset, strings.Index(lines[1], "github"))
	assert.Equal(t, offset, strings.Index(lines[2], "starbucks store"))
	assert.Equal(t, "3", strings.TrimSpace(lines[3]))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "+2500.00", FormatAmount(decimal.RequireFromString("2500")))
	assert.Equal(t, "-4.50", FormatAmount(decimal.RequireFromString("-4.5")))
	assert.Equal(t, "-0.004", FormatAmount(decimal.RequireFromString("-0.004")))
	assert.Equal(t, "-4.00", FormatAmount(decimal.RequireFromString("-4")))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), SuccessIcon+" done")
	assert.Contains(t, FormatError("bad"), ErrorIcon+" bad")
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatTitle("Status"), "Status")
	assert.Contains(t, RenderBox("Import", "5 imported"), "5 imported")
}

func TestProgressFunc(t *testing.T) {
	var out bytes.Buffer
	bar := NewProgressBar(&out, 4, "Classifying")
	report := ProgressFunc(bar)

	for i := 1; i <= 4; i++ {
		report(i, 4)
	}
	assert.True(t, bar.IsFinished())
	assert.Contains(t, out.String(), "4/4")
}

package format

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
)

const (
	mdyLayout = "1/2/2006"
	// sniffLimit bounds how much of a file a detector reads.
	sniffLimit = 64 * 1024
)

// excelEpoch is day zero of spreadsheet serial dates, which absorbs the
// fictitious 1900-02-29.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var errEmptyAmount = errors.New("empty amount")

// ParseAmount reads a statement amount. Thousands separators, quotes and a
// dollar sign are ignored; an accountant-style "(12.50)" is negative.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.NewReplacer(",", "", `"`, "", "$", "").Replace(raw)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}

	negate := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negate = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	if negate {
		d = d.Neg()
	}
	return d, nil
}

// ParseDateMDY converts MM/DD/YYYY to an ISO date. Out-of-range days and
// months are rejected rather than normalized.
func ParseDateMDY(raw string) (string, error) {
	t, err := time.Parse(mdyLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", raw, err)
	}
	return t.Format(model.DateLayout), nil
}

// ExcelSerialToDate converts a spreadsheet serial day number to an ISO date.
// The time-of-day fraction is discarded.
func ExcelSerialToDate(serial float64) string {
	return excelEpoch.AddDate(0, 0, int(serial)).Format(model.DateLayout)
}

// readRecords reads every CSV record of path, tolerating ragged rows and
// stray quotes as bank exports produce them.
func readRecords(path string) ([][]string, error) {
	f, err := os.Open(path) // #nosec G304 - user-supplied statement path
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return parseRecords(f)
}

func parseRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
}

// sniff returns the first sniffLimit bytes of path, or nil if unreadable.
func sniff(path string) []byte {
	f, err := os.Open(path) // #nosec G304 - user-supplied statement path
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	buf, err := io.ReadAll(io.LimitReader(bufio.NewReader(f), sniffLimit))
	if err != nil {
		return nil
	}
	return buf
}

// sniffRecords parses the sniffed prefix of path as CSV.
func sniffRecords(path string) [][]string {
	head := sniff(path)
	if head == nil {
		return nil
	}
	records, err := parseRecords(strings.NewReader(string(head)))
	if err != nil {
		return nil
	}
	return records
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseFloatCell reads a raw numeric spreadsheet cell.
func parseFloatCell(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

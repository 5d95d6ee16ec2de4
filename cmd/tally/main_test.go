package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/Veraticus/tally/internal/testutil"
)

// execute runs the root command against dataDir and returns everything it wrote.
func execute(t *testing.T, dataDir, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data-dir", dataDir, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportClassifyWorkflow(t *testing.T) {
	dataDir := t.TempDir()
	statement := testutil.WriteFile(t, "january.csv", testutil.BofAChecking(testutil.FiveRowStatement...))

	out, err := execute(t, dataDir, "", "accounts", "add", "Checking", "--kind", "checking")
	require.NoError(t, err)
	assert.Contains(t, out, "Added checking account Checking")

	out, err = execute(t, dataDir, "", "rules", "add", "github", "--category", "Software & Subscriptions", "--vendor", "GitHub")
	require.NoError(t, err)
	assert.Contains(t, out, "Added rule #1")

	out, err = execute(t, dataDir, "", "import", statement, "--account", "Checking")
	require.NoError(t, err)
	assert.Contains(t, out, "january.csv: 5 imported, 0 already present")
	assert.Contains(t, out, "Rules categorized 2 transactions, 3 still unresolved")

	out, err = execute(t, dataDir, "", "import", statement, "--account", "Checking")
	require.NoError(t, err)
	assert.Contains(t, out, "already imported")

	out, err = execute(t, dataDir, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Transactions:  5")
	assert.Contains(t, out, "Unresolved:    3")
	assert.Contains(t, out, "Imports:       1")

	out, err = execute(t, dataDir, "", "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Software & Subscriptions")
	assert.Contains(t, out, "GitHub")

	out, err = execute(t, dataDir, "", "classify")
	require.NoError(t, err)
	assert.Contains(t, out, "Rules categorized 0 transactions, 3 still unresolved")

	out, err = execute(t, dataDir, "", "checkpoint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "pre-import")
	assert.Contains(t, out, "(auto)")
}

func TestImportReportsFailedFiles(t *testing.T) {
	dataDir := t.TempDir()
	good := testutil.WriteFile(t, "good.csv", testutil.BofAChecking(testutil.FiveRowStatement[:2]...))
	bad := testutil.WriteFile(t, "bad.txt", "not a statement\n")

	_, err := execute(t, dataDir, "", "accounts", "add", "Checking", "--kind", "checking")
	require.NoError(t, err)

	out, err := execute(t, dataDir, "", "import", bad, good, "--account", "Checking", "--no-classify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "bad.txt: no format recognizes this file")
	assert.Contains(t, out, "good.csv: 2 imported")
	assert.NotContains(t, out, "Rules categorized")
}

func TestCommandErrors(t *testing.T) {
	dataDir := t.TempDir()
	_, err := execute(t, dataDir, "", "accounts", "add", "Checking", "--kind", "checking")
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{
			name:    "invalid account kind",
			args:    []string{"accounts", "add", "Brokerage", "--kind", "brokerage"},
			wantMsg: "kind must be one of checking, credit_card, line_of_credit, payroll",
		},
		{
			name:    "duplicate account",
			args:    []string{"accounts", "add", "Checking"},
			wantErr: common.ErrDuplicateEntry,
		},
		{
			name:    "unknown category",
			args:    []string{"rules", "add", "uber", "--category", "Rideshare"},
			wantErr: common.ErrInvalidCategory,
		},
		{
			name:    "bad regex",
			args:    []string{"rules", "add", "([", "--kind", "regex", "--category", "Meals"},
			wantErr: common.ErrInvalidPattern,
		},
		{
			name:    "unknown rule",
			args:    []string{"rules", "deactivate", "42"},
			wantErr: common.ErrNotFound,
		},
		{
			name:    "non-numeric rule id",
			args:    []string{"rules", "deactivate", "first"},
			wantMsg: `"first" is not a rule ID`,
		},
		{
			name:    "category type",
			args:    []string{"categories", "add", "Gifts", "--type", "transfer"},
			wantErr: common.ErrInvalidCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, dataDir, "", tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			var userErr *common.UserError
			require.ErrorAs(t, err, &userErr)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, userErr.UserMessage)
			}
		})
	}
}

func TestCategoriesCommands(t *testing.T) {
	dataDir := t.TempDir()

	out, err := execute(t, dataDir, "", "categories", "add", "Donations", "--type", "expense", "--tax-line", "Sch A")
	require.NoError(t, err)
	assert.Contains(t, out, "Added category Donations")

	out, err = execute(t, dataDir, "", "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Donations")
	assert.Contains(t, out, "Sch A")

	_, err = execute(t, dataDir, "", "categories", "deactivate", "Donations")
	require.NoError(t, err)

	out, err = execute(t, dataDir, "", "categories", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Donations")
}

func TestCheckpointLifecycle(t *testing.T) {
	dataDir := t.TempDir()

	out, err := execute(t, dataDir, "", "checkpoint", "create", "--tag", "baseline")
	require.NoError(t, err)
	assert.Contains(t, out, "Created checkpoint: baseline")

	_, err = execute(t, dataDir, "", "accounts", "add", "Card", "--kind", "credit_card")
	require.NoError(t, err)

	out, err = execute(t, dataDir, "n\n", "checkpoint", "restore", "baseline")
	require.NoError(t, err)
	assert.Contains(t, out, "Restore canceled")

	out, err = execute(t, dataDir, "y\n", "checkpoint", "restore", "baseline")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored checkpoint: baseline")

	out, err = execute(t, dataDir, "", "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No accounts yet")

	_, err = execute(t, dataDir, "", "checkpoint", "delete", "baseline", "--force")
	require.NoError(t, err)

	_, err = execute(t, dataDir, "", "checkpoint", "restore", "baseline", "--force")
	require.ErrorIs(t, err, storage.ErrCheckpointNotFound)
}

func TestFormatsAndVersion(t *testing.T) {
	dataDir := t.TempDir()

	out, err := execute(t, dataDir, "", "formats")
	require.NoError(t, err)
	for _, key := range []string{"bofa_checking", "bofa_credit_card", "bofa_line_of_credit", "gusto_payroll", "ofx"} {
		assert.Contains(t, out, key)
	}

	out, err = execute(t, dataDir, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "tally dev\n", out)
}

// splitExample splits one documented command line, honoring double quotes.
func splitExample(line string) []string {
	var args []string
	var cur strings.Builder
	quoted, inArg := false, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inArg = true
		case r == ' ' && !quoted:
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args
}

func TestRulesAddExamplesRun(t *testing.T) {
	dataDir := t.TempDir()
	example := addRuleCmd(&rootOptions{}).Example

	for _, line := range strings.Split(example, "\n") {
		args := splitExample(strings.TrimSpace(line))
		require.Equal(t, "tally", args[0])

		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			out, err := execute(t, dataDir, "", args[1:]...)
			require.NoError(t, err)
			assert.Contains(t, out, "Added rule #")
		})
	}
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/Veraticus/tally/internal/testutil"
)

func openTestApp(t *testing.T, snapshot bool) *App {
	t.Helper()
	dir := t.TempDir()
	settings := &config.Settings{
		DataDir:          dir,
		DatabasePath:     filepath.Join(dir, "tally.db"),
		MaxSnapshots:     2,
		SnapshotOnImport: snapshot,
	}
	a, err := Open(context.Background(), settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.Store.CreateAccount(context.Background(), &model.Account{Name: "Checking", Kind: model.KindChecking}))
	return a
}

func TestOpen_Migrates(t *testing.T) {
	a := openTestApp(t, false)
	status, err := a.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.ExpectedSchemaVersion, status.SchemaVersion)
	assert.Equal(t, 1, status.Accounts)
	assert.Equal(t, a.Settings.DatabasePath, status.DatabasePath)
}

func TestImportFiles_FailuresAreIsolated(t *testing.T) {
	a := openTestApp(t, true)
	ctx := context.Background()

	good := testutil.WriteFile(t, "jan.csv", testutil.BofAChecking(testutil.FiveRowStatement...))
	bad := testutil.WriteFile(t, "junk.csv", "not,a,statement\n")
	missing := filepath.Join(t.TempDir(), "missing.csv")

	var calls int
	results, err := a.ImportFiles(ctx, []string{bad, good, missing, good}, "Checking", "", func(done, total int) {
		calls++
		assert.Equal(t, 4, total)
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, 4, calls)

	assert.ErrorIs(t, results[0].Err, common.ErrNoMatchingFormat)
	require.NoError(t, results[1].Err)
	assert.Equal(t, 5, results[1].Outcome.Imported)
	assert.Error(t, results[2].Err)
	require.NoError(t, results[3].Err)
	assert.True(t, results[3].Outcome.DuplicateFile)

	checkpoints, err := a.Checkpoints.List(ctx)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Contains(t, checkpoints[0].ID, "pre-import")
}

func TestImportFiles_NoSnapshotWhenDisabled(t *testing.T) {
	a := openTestApp(t, false)
	ctx := context.Background()

	path := testutil.WriteFile(t, "jan.csv", testutil.BofAChecking(testutil.FiveRowStatement...))
	_, err := a.ImportFiles(ctx, []string{path}, "Checking", "", nil)
	require.NoError(t, err)

	checkpoints, err := a.Checkpoints.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, checkpoints)
}

func TestStatus_Counts(t *testing.T) {
	a := openTestApp(t, false)
	ctx := context.Background()

	path := testutil.WriteFile(t, "jan.csv", testutil.BofAChecking(testutil.FiveRowStatement...))
	_, err := a.ImportFiles(ctx, []string{path}, "Checking", "", nil)
	require.NoError(t, err)

	cat, err := a.Store.GetCategoryByName(ctx, "Software & Subscriptions")
	require.NoError(t, err)
	require.NoError(t, a.Store.CreateRule(ctx, &model.Rule{Pattern: "github", Kind: model.MatchContains, CategoryID: cat.ID}))

	result, err := a.Engine().ClassifyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Categorized)

	status, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, status.Transactions)
	assert.Equal(t, 3, status.Unresolved)
	assert.Equal(t, 1, status.ActiveRules)
	assert.Equal(t, 1, status.ImportBatches)
}

func TestRestore_Reopens(t *testing.T) {
	a := openTestApp(t, false)
	ctx := context.Background()

	info, err := a.Checkpoints.Create(ctx, "empty", "before any import")
	require.NoError(t, err)

	path := testutil.WriteFile(t, "jan.csv", testutil.BofAChecking(testutil.FiveRowStatement...))
	_, err = a.ImportFiles(ctx, []string{path}, "Checking", "", nil)
	require.NoError(t, err)

	require.NoError(t, a.Restore(ctx, info.ID))

	status, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Transactions)
	assert.Equal(t, 1, status.Accounts)

	err = a.Restore(ctx, "nope")
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestRestore_FailedBackupLeavesStoreUsable(t *testing.T) {
	a := openTestApp(t, false)
	ctx := context.Background()

	info, err := a.Checkpoints.Create(ctx, "empty", "")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(a.Store.Path()+".restore-backup", "occupied"), 0750))

	require.Error(t, a.Restore(ctx, info.ID))

	status, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Accounts)
}

func TestStartReview_UsesDefaultPriority(t *testing.T) {
	a := openTestApp(t, false)
	a.Settings.DefaultRulePriority = 5
	ctx := context.Background()

	path := testutil.WriteFile(t, "jan.csv", testutil.BofAChecking(testutil.FiveRowStatement...))
	_, err := a.ImportFiles(ctx, []string{path}, "Checking", "", nil)
	require.NoError(t, err)

	session, err := a.StartReview(ctx)
	require.NoError(t, err)
	cat, err := a.Store.GetCategoryByName(ctx, "Software & Subscriptions")
	require.NoError(t, err)
	require.NoError(t, session.Resolve(ctx, cat.ID, "GitHub", &model.RuleSpec{Pattern: "github"}))

	rules, err := a.Store.GetActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 5, rules[0].Priority)
}

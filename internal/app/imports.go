package app

import (
	"context"
	"log/slog"

	"github.com/Veraticus/tally/internal/ingest"
)

// FileResult is the outcome of one file of a multi-file import.
type FileResult struct {
	Err     error
	Outcome *ingest.ImportOutcome
	Path    string
}

// ImportFiles ingests each path into account independently: a failing file
// aborts only itself. When snapshots are enabled a checkpoint is taken first.
// progress, if non-nil, is called after each file.
func (a *App) ImportFiles(ctx context.Context, paths []string, account, formatKey string, progress func(done, total int)) ([]FileResult, error) {
	if a.Settings.SnapshotOnImport && len(paths) > 0 {
		info, err := a.Checkpoints.AutoCheckpoint(ctx, "pre-import")
		if err != nil {
			return nil, err
		}
		slog.Debug("created pre-import checkpoint", "checkpoint", info.ID)
	}

	results := make([]FileResult, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		outcome, err := a.Ledger.Ingest(ctx, path, account, formatKey)
		if err != nil {
			slog.Error("Import failed", "file", path, "error", err)
		}
		results = append(results, FileResult{Path: path, Outcome: outcome, Err: err})

		if progress != nil {
			progress(i+1, len(paths))
		}
	}
	return results, nil
}

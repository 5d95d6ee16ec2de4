// Package app wires the ledger's components together. An App is the explicit
// context handed to every command; nothing is kept in package state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/format"
	"github.com/Veraticus/tally/internal/ingest"
	"github.com/Veraticus/tally/internal/review"
	"github.com/Veraticus/tally/internal/storage"
)

// App holds the open database and the services built on it.
type App struct {
	Settings    *config.Settings
	Store       *storage.SQLiteStorage
	Registry    *format.Registry
	Ledger      *ingest.Ledger
	Checkpoints *storage.CheckpointManager
}

var openRetry = common.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
}

// Open opens and migrates the database named by settings.
func Open(ctx context.Context, settings *config.Settings) (*App, error) {
	a := &App{Settings: settings, Registry: format.DefaultRegistry()}
	if err := a.open(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	var store *storage.SQLiteStorage
	err := common.WithRetry(ctx, func() error {
		s, err := storage.NewSQLiteStorage(a.Settings.DatabasePath)
		if err != nil {
			return err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return err
		}
		store = s
		return nil
	}, openRetry)
	if err != nil {
		return common.NewUserError("failed to open database "+a.Settings.DatabasePath, err)
	}

	checkpoints, err := store.NewCheckpointManager(a.Settings.MaxSnapshots)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}

	a.Store = store
	a.Checkpoints = checkpoints
	a.Ledger = ingest.NewLedger(store, a.Registry)
	return nil
}

// Close closes the database.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Engine returns a classification engine over the store.
func (a *App) Engine(opts ...engine.Option) *engine.ClassificationEngine {
	return engine.New(a.Store, opts...)
}

// StartReview opens a review session over the current unresolved queue.
func (a *App) StartReview(ctx context.Context) (*review.Session, error) {
	return review.Start(ctx, a.Store, review.WithDefaultPriority(a.Settings.DefaultRulePriority))
}

// Restore replaces the database with a checkpoint and reopens it. A restore
// that fails after closing the database still reopens it.
func (a *App) Restore(ctx context.Context, id string) error {
	if err := a.Checkpoints.Restore(ctx, id); err != nil {
		if errors.Is(err, storage.ErrCheckpointNotFound) {
			return common.NewUserError("no checkpoint named "+id, err)
		}
		if errors.Is(err, storage.ErrRestoreFailed) {
			if openErr := a.open(ctx); openErr != nil {
				return errors.Join(err, openErr)
			}
		}
		return err
	}
	slog.Info("Restored checkpoint", "checkpoint", id)
	return a.open(ctx)
}

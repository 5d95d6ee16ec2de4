package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// CheckpointManager snapshots the ledger database into a sibling
// checkpoints directory and restores it from those snapshots.
type CheckpointManager struct {
	db             *sql.DB
	dbPath         string
	checkpointsDir string
	maxAuto        int
	copyFile       func(src, dst string) error
}

// CheckpointMetadata is written next to each snapshot as <id>.meta.json.
type CheckpointMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// CheckpointInfo summarizes a checkpoint for listing.
type CheckpointInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	Transactions  int
	Unresolved    int
	Rules         int
	Imports       int
	SchemaVersion int
	IsAuto        bool
}

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrInvalidCheckpointID = errors.New("invalid checkpoint ID: cannot contain path separators")
	// ErrRestoreFailed means the database was closed and rolled back to its
	// pre-restore contents; the caller must reopen it.
	ErrRestoreFailed = errors.New("checkpoint restore failed")
)

// rowCountQueries are the tables summarized in checkpoint metadata.
var rowCountQueries = map[string]string{
	"transactions": "SELECT COUNT(*) FROM transactions",
	"unresolved":   "SELECT COUNT(*) FROM transactions WHERE unresolved = 1",
	"rules":        "SELECT COUNT(*) FROM rules WHERE is_active = 1",
	"imports":      "SELECT COUNT(*) FROM imports",
}

// NewCheckpointManager creates a checkpoint manager keeping at most maxAuto
// automatic checkpoints.
func NewCheckpointManager(db *sql.DB, dbPath string, maxAuto int) (*CheckpointManager, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	checkpointsDir := filepath.Join(filepath.Dir(absPath), "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	if maxAuto < 1 {
		maxAuto = 1
	}

	return &CheckpointManager{
		db:             db,
		dbPath:         absPath,
		checkpointsDir: checkpointsDir,
		maxAuto:        maxAuto,
		copyFile:       copyFileAtomic,
	}, nil
}

// Create snapshots the database under tag. An empty tag is generated from the clock.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	return cm.create(ctx, tag, description, false)
}

// AutoCheckpoint snapshots the database before an operation named by prefix
// and prunes automatic checkpoints beyond the configured limit.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, prefix string) (*CheckpointInfo, error) {
	tag := fmt.Sprintf("%s-%s", prefix, time.Now().Format("20060102-150405.000000000"))
	info, err := cm.create(ctx, tag, "Automatic checkpoint before "+prefix, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}

	if err := cm.pruneAuto(ctx); err != nil {
		slog.Warn("failed to clean up old auto-checkpoints", "error", err)
	}
	return info, nil
}

func (cm *CheckpointManager) create(ctx context.Context, tag, description string, auto bool) (*CheckpointInfo, error) {
	if tag == "" {
		tag = "checkpoint-" + time.Now().Format("2006-01-02-150405")
	}
	if err := validateCheckpointID(tag); err != nil {
		return nil, err
	}

	snapshotPath := cm.snapshotPath(tag)
	if _, err := os.Stat(snapshotPath); err == nil {
		return nil, ErrCheckpointExists
	}

	var schemaVersion int
	if err := cm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	counts := cm.collectRowCounts(ctx)

	if err := cm.vacuumInto(ctx, snapshotPath); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	stat, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	meta := CheckpointMetadata{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: schemaVersion,
		IsAuto:        auto,
	}
	if err := writeJSONAtomic(cm.metadataPath(tag), meta); err != nil {
		if rmErr := os.Remove(snapshotPath); rmErr != nil {
			slog.Error("failed to remove checkpoint file after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	if err := cm.recordInDB(ctx, meta); err != nil {
		// The snapshot and its sidecar are authoritative.
		slog.Warn("failed to store checkpoint metadata in database", "error", err)
	}

	slog.Debug("created checkpoint", "id", tag, "auto", auto, "size", meta.FileSize)
	return meta.info(), nil
}

// List returns all checkpoints, newest first. Unreadable metadata is skipped.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	var out []CheckpointInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		meta, err := readMetadata(filepath.Join(cm.checkpointsDir, name))
		if err != nil {
			slog.Debug("skipping unreadable checkpoint metadata", "file", name, "error", err)
			continue
		}
		out = append(out, *meta.info())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Restore replaces the database file with a checkpoint. On success, or on an
// error wrapping ErrRestoreFailed, the manager's connection is closed and
// callers must reopen storage. Any other error leaves the database open.
func (cm *CheckpointManager) Restore(ctx context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}

	snapshotPath := cm.snapshotPath(id)
	if _, err := os.Stat(snapshotPath); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}
	if _, err := readMetadata(cm.metadataPath(id)); err != nil {
		return fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	if err := integrityCheck(snapshotPath); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointCorrupted, err)
	}

	// The backup is taken from the live database so a failure here leaves
	// it open and untouched.
	backupPath := cm.dbPath + ".restore-backup"
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear stale backup: %w", err)
	}
	if err := cm.vacuumInto(ctx, backupPath); err != nil {
		return fmt.Errorf("failed to backup current database: %w", err)
	}

	if err := cm.db.Close(); err != nil {
		if rmErr := os.Remove(backupPath); rmErr != nil {
			slog.Warn("failed to remove backup file", "error", rmErr)
		}
		return fmt.Errorf("%w: failed to close database: %w", ErrRestoreFailed, err)
	}

	if err := cm.copyFile(snapshotPath, cm.dbPath); err != nil {
		if restoreErr := copyFileAtomic(backupPath, cm.dbPath); restoreErr != nil {
			slog.Error("failed to restore backup after checkpoint restore failure", "backup", backupPath, "error", restoreErr)
			return fmt.Errorf("%w: %w (backup kept at %s)", ErrRestoreFailed, err, backupPath)
		}
		removeSidecars(cm.dbPath)
		if rmErr := os.Remove(backupPath); rmErr != nil {
			slog.Warn("failed to remove backup file", "error", rmErr)
		}
		return fmt.Errorf("%w: %w", ErrRestoreFailed, err)
	}

	removeSidecars(cm.dbPath)
	if err := os.Remove(backupPath); err != nil {
		slog.Error("failed to remove backup file", "error", err)
	}
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(ctx context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}

	snapshotPath := cm.snapshotPath(id)
	if _, err := os.Stat(snapshotPath); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}
	if err := os.Remove(snapshotPath); err != nil {
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	if err := os.Remove(cm.metadataPath(id)); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "id", id)
	}
	if _, err := cm.db.ExecContext(ctx, "DELETE FROM checkpoint_metadata WHERE id = ?", id); err != nil {
		slog.Debug("failed to remove checkpoint metadata from database", "error", err, "id", id)
	}
	return nil
}

func (cm *CheckpointManager) pruneAuto(ctx context.Context) error {
	checkpoints, err := cm.List(ctx)
	if err != nil {
		return err
	}

	kept := 0
	for _, cp := range checkpoints {
		if !cp.IsAuto {
			continue
		}
		kept++
		if kept <= cm.maxAuto {
			continue
		}
		if err := cm.Delete(ctx, cp.ID); err != nil {
			slog.Debug("failed to delete old auto-checkpoint", "error", err, "checkpoint", cp.ID)
		}
	}
	return nil
}

func (cm *CheckpointManager) snapshotPath(id string) string {
	return filepath.Join(cm.checkpointsDir, id+".db")
}

func (cm *CheckpointManager) metadataPath(id string) string {
	return filepath.Join(cm.checkpointsDir, id+".meta.json")
}

func (cm *CheckpointManager) collectRowCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(rowCountQueries))
	for name, query := range rowCountQueries {
		var n int
		if err := cm.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			slog.Debug("failed to count rows for checkpoint", "table", name, "error", err)
		}
		counts[name] = n
	}
	return counts
}

// removeSidecars deletes WAL and shared-memory files, which belong to the
// database that was just replaced.
func removeSidecars(dbPath string) {
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove stale sqlite file", "file", dbPath+suffix, "error", err)
		}
	}
}

// vacuumInto writes a consistent copy of the live database to dest.
func (cm *CheckpointManager) vacuumInto(ctx context.Context, dest string) error {
	if strings.ContainsAny(dest, `'";`) || !filepath.IsAbs(dest) {
		return fmt.Errorf("invalid destination path %q", dest)
	}
	// #nosec G201 - dest is validated above
	if _, err := cm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return err
	}
	return nil
}

func (cm *CheckpointManager) recordInDB(ctx context.Context, meta CheckpointMetadata) error {
	counts, err := json.Marshal(meta.RowCounts)
	if err != nil {
		return err
	}
	_, err = cm.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoint_metadata
		(id, created_at, description, file_size, row_counts, schema_version, is_auto)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, meta.ID, meta.CreatedAt, meta.Description, meta.FileSize, string(counts), meta.SchemaVersion, meta.IsAuto)
	return err
}

func (m *CheckpointMetadata) info() *CheckpointInfo {
	return &CheckpointInfo{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Description:   m.Description,
		FileSize:      m.FileSize,
		Transactions:  m.RowCounts["transactions"],
		Unresolved:    m.RowCounts["unresolved"],
		Rules:         m.RowCounts["rules"],
		Imports:       m.RowCounts["imports"],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

func validateCheckpointID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidCheckpointID
	}
	return nil
}

func readMetadata(path string) (*CheckpointMetadata, error) {
	// #nosec G304 - path is built from a validated checkpoint ID
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta CheckpointMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func copyFileAtomic(src, dst string) error {
	// #nosec G304 - src is the database path or a validated checkpoint path
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func integrityCheck(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

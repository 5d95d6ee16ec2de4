// Package config resolves tally settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultDataDir      = "$HOME/.local/share/tally"
	DefaultDBName       = "tally.db"
	DefaultMaxSnapshots = 5
)

// Settings is the resolved configuration handed to every command.
type Settings struct {
	DataDir             string
	DatabasePath        string
	LogLevel            string
	LogFormat           string
	ReviewTheme         string
	DefaultRulePriority int
	MaxSnapshots        int
	SnapshotOnImport    bool
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", DefaultDataDir)
	v.SetDefault("database.path", "")
	v.SetDefault("rules.default_priority", 0)
	v.SetDefault("import.snapshot", true)
	v.SetDefault("import.max_snapshots", DefaultMaxSnapshots)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("review.theme", "default")
}

// Load resolves Settings from v, expanding paths.
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	dataDir := ExpandPath(v.GetString("data.dir"))
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data.dir is empty", common.ErrMissingConfig)
	}

	dbPath := ExpandPath(v.GetString("database.path"))
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, DefaultDBName)
	}

	maxSnapshots := v.GetInt("import.max_snapshots")
	if maxSnapshots < 1 {
		return nil, fmt.Errorf("%w: import.max_snapshots must be at least 1", common.ErrInvalidConfig)
	}

	return &Settings{
		DataDir:             dataDir,
		DatabasePath:        dbPath,
		LogLevel:            v.GetString("logging.level"),
		LogFormat:           v.GetString("logging.format"),
		ReviewTheme:         v.GetString("review.theme"),
		DefaultRulePriority: v.GetInt("rules.default_priority"),
		MaxSnapshots:        maxSnapshots,
		SnapshotOnImport:    v.GetBool("import.snapshot"),
	}, nil
}

// ExpandPath expands a leading ~ and any $VAR references in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}

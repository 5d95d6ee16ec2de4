package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/tally/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("TALLY_TEST_DIR", "/srv/ledger")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"tilde", "~", home},
		{"tilde prefix", "~/books/tally.db", filepath.Join(home, "books/tally.db")},
		{"env var", "$TALLY_TEST_DIR/tally.db", "/srv/ledger/tally.db"},
		{"plain", "/tmp/tally.db", "/tmp/tally.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	v := viper.New()

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/tally", s.DataDir)
	assert.Equal(t, "/home/tester/.local/share/tally/tally.db", s.DatabasePath)
	assert.True(t, s.SnapshotOnImport)
	assert.Equal(t, DefaultMaxSnapshots, s.MaxSnapshots)
	assert.Equal(t, 0, s.DefaultRulePriority)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "default", s.ReviewTheme)
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	v := viper.New()
	v.Set("data.dir", dir)
	v.Set("database.path", filepath.Join(dir, "custom.db"))
	v.Set("rules.default_priority", 3)
	v.Set("import.snapshot", false)

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.db"), s.DatabasePath)
	assert.Equal(t, 3, s.DefaultRulePriority)
	assert.False(t, s.SnapshotOnImport)
}

func TestLoad_InvalidSnapshotLimit(t *testing.T) {
	v := viper.New()
	v.Set("import.max_snapshots", 0)

	_, err := Load(v)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

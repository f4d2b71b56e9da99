package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/fif-go/assets"
	"github.com/doeshing/fif-go/internal/domain"
)

func TestLoadWritesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, assets.DefaultConfigYAML, written)

	assert.Equal(t, domain.PolicyNoWorkspaceOnly, cfg.General.SearchCurrentWorkingDirectory)
	assert.Equal(t, domain.PolicyAlways, cfg.General.AdditionalSearchLocationsWhen)
	assert.True(t, cfg.General.HideTerminalAfterSuccess)
	assert.Equal(t, "tmux", cfg.Terminal.Backend)
	assert.Equal(t, domain.DefaultTerminalName, cfg.Terminal.Name)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Scripts.Dir)
	assert.True(t, filepath.IsAbs(cfg.Scripts.Dir))
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
general:
  bat_theme: "Nord"
  kill_terminal_after_use: true
custom_tasks:
  - name: lint
    command: golangci-lint run
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Nord", cfg.General.BatTheme)
	assert.True(t, cfg.General.KillTerminalAfterUse)
	// untouched keys keep their defaults
	assert.True(t, cfg.General.HideTerminalAfterFail)
	assert.Equal(t, []domain.CustomTask{{Name: "lint", Command: "golangci-lint run"}}, cfg.CustomTasks)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("general: [unterminated"), 0o600))

	_, err := NewFileLoader(path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestPathHonoursEnvOverride(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "fif.yaml")
	t.Setenv("FIF_CONFIG", custom)
	assert.Equal(t, custom, NewFileLoader("").Path())

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	assert.Equal(t, explicit, NewFileLoader(explicit).Path())
}

func TestHydrateExpandsHomePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := hydrateDefaults(domain.Config{
		Scripts: domain.ScriptSettings{Dir: "~/scripts"},
		General: domain.GeneralSettings{AdditionalSearchLocations: []string{"~/notes", "/abs"}},
	})
	assert.Equal(t, filepath.Join(home, "scripts"), cfg.Scripts.Dir)
	assert.Equal(t, []string{filepath.Join(home, "notes"), "/abs"}, cfg.General.AdditionalSearchLocations)
}

func TestSaveRoundTripsAndBacksUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	backup, err := loader.Backup()
	require.NoError(t, err)
	original, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, assets.DefaultConfigYAML, original)

	cfg.CustomTasks = append(cfg.CustomTasks, domain.CustomTask{Name: "lint", Command: "make lint"})
	require.NoError(t, loader.Save(cfg))

	reloaded, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.CustomTasks, reloaded.CustomTasks)
	assert.Equal(t, cfg.General.SearchCurrentWorkingDirectory, reloaded.General.SearchCurrentWorkingDirectory)
	assert.Equal(t, cfg.Scripts.Dir, reloaded.Scripts.Dir)
}

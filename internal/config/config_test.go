package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Link.ToleranceHours)
	assert.Equal(t, 24, cfg.Link.RecoveredToleranceHours)
	assert.Equal(t, 24*time.Hour, cfg.Link.Window())
	assert.Equal(t, "utf-8", cfg.Ingest.Encoding)
	assert.Equal(t, "ResponseId", cfg.Ingest.ResponseIDColumn)
	assert.Equal(t, "StartDate", cfg.Ingest.StartTimeColumn)
	assert.Equal(t, "UserID", cfg.Ingest.DeclaredIDColumn)
	assert.Equal(t, "linkage.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Extract.LayoutsFile)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
link:
  tolerance_hours: 48
ingest:
  encoding: windows-1252
store:
  path: runs/audit.db
log:
  level: debug
  format: console
extract:
  layouts_file: layouts.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 48, cfg.Link.ToleranceHours)
	assert.Equal(t, 48*time.Hour, cfg.Link.Window())
	assert.Equal(t, "windows-1252", cfg.Ingest.Encoding)
	assert.Equal(t, "runs/audit.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "layouts.yaml", cfg.Extract.LayoutsFile)
	// Defaults still apply for unset values
	assert.Equal(t, 24, cfg.Link.RecoveredToleranceHours)
	assert.Equal(t, "ResponseId", cfg.Ingest.ResponseIDColumn)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: info
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LINKAGE_LOG_LEVEL", "warn")
	t.Setenv("LINKAGE_LINK_TOLERANCE_HOURS", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 12, cfg.Link.ToleranceHours)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("link: [not: valid"), 0644))

	_, err := Load()
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose", Format: "json"})
	require.Error(t, err)
}

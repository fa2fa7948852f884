package adapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/lensgrid/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.Grid.BaseColumns)
	assert.Equal(t, 0.5, cfg.Grid.MinScale)
	assert.Equal(t, 2.0, cfg.Grid.MaxScale)
	assert.Equal(t, 0.5, cfg.Grid.Spacing)
	assert.Equal(t, 300*time.Millisecond, cfg.Grid.SettleDelay)
	assert.Equal(t, 100, cfg.Grid.LowFiSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Grid.Crossfade)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.NoError(t, cfg.Validate())

	pc := cfg.PrefetchConfig()
	assert.Equal(t, domain.Size{Width: 100, Height: 100}, pc.LowFiSize)
	assert.InDelta(t, 0.333, pc.ThresholdFraction, 0.001)
}

func TestLoadConfigFrom_File(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
library:
  path: /srv/photos
  match: beach
grid:
  base_columns: 4
  settle_delay: 500ms
cache:
  dir: ""
metrics:
  addr: 127.0.0.1:9100
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0644))

	cfg, err := LoadConfigFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "/srv/photos", cfg.Library.Path)
	assert.Equal(t, "beach", cfg.Library.Match)
	assert.Equal(t, 4, cfg.Grid.BaseColumns)
	assert.Equal(t, 500*time.Millisecond, cfg.Grid.SettleDelay)
	assert.Equal(t, 2.0, cfg.Grid.MaxScale, "unset keys keep their defaults")
	assert.Empty(t, cfg.Cache.Dir)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}

func TestLoadConfigFrom_Env(t *testing.T) {
	t.Setenv("LENSGRID_GRID_BASE_COLUMNS", "5")
	t.Setenv("LENSGRID_LIBRARY_PATH", "/mnt/camera")

	cfg, err := LoadConfigFrom(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Grid.BaseColumns)
	assert.Equal(t, "/mnt/camera", cfg.Library.Path)
}

func TestLoadConfigFrom_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("grid: [1, 2"), 0644))

	_, err := LoadConfigFrom(dir)
	assert.Error(t, err)
}

func TestSaveConfigTo_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Library.Path = "/data/pics"
	cfg.Grid.Crossfade = 350 * time.Millisecond

	require.NoError(t, SaveConfigTo(dir, cfg))

	loaded, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "/data/pics", loaded.Library.Path)
	assert.Equal(t, 350*time.Millisecond, loaded.Grid.Crossfade)
	assert.Equal(t, cfg.Grid.SettleDelay, loaded.Grid.SettleDelay)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.BaseColumns = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Grid.MinScale, cfg.Grid.MaxScale = 2, 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Library.Path = ""
	assert.Error(t, cfg.Validate())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("dropped")
	logger.Warn("kept", "index", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, float64(7), entry["index"])
}

func TestSetupLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lensgrid.log")
	logger, closer, err := SetupLogger(&LoggingConfig{File: path, Level: "info"})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

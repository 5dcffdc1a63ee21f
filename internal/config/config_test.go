package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://zenodo.org/records/8419340/files/lcz_filter_v3.tif", cfg.Source.URL)
	assert.Equal(t, 5, cfg.Source.MaxAttempts)
	assert.Equal(t, 60, cfg.Source.TimeoutSecs)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.BaseURL)
	assert.Equal(t, "lczmap/1.0 (urban climate analysis)", cfg.Geocode.UserAgent)
	assert.InDelta(t, 1.0, cfg.Geocode.RateRPS, 0.001)
	assert.Equal(t, 10, cfg.Aggregate.Factor)
	assert.Equal(t, 0, cfg.Aggregate.Workers)
	assert.Equal(t, "lczmap_output", cfg.Output.Dir)
	assert.Equal(t, "lczmap.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
aggregate:
  factor: 4
log:
  level: debug
  format: console
server:
  port: 9090
output:
  dir: /tmp/lcz
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Aggregate.Factor)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/lcz", cfg.Output.Dir)
	// Defaults still apply for unset values
	assert.Equal(t, "lczmap.db", cfg.Store.Path)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
aggregate:
  factor: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LCZMAP_LOG_LEVEL", "warn")
	t.Setenv("LCZMAP_AGGREGATE_FACTOR", "2")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Aggregate.Factor)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LCZMAP_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config sufficient to pass validation in any mode.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Source.URL = "https://example.com/lcz.tif"
	cfg.Geocode.BaseURL = "https://nominatim.openstreetmap.org"
	cfg.Geocode.RateRPS = 1.0
	cfg.Aggregate.Factor = 10
	cfg.Store.Path = "lczmap.db"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateAnalyze_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateAnalyze_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Source.URL = ""
	cfg.Geocode.BaseURL = ""

	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source.url is required")
	assert.Contains(t, err.Error(), "geocode.base_url is required")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_MissingStorePath(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Path = ""

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateFactorBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Aggregate.Factor = 0
	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate.factor must be >= 1")

	cfg.Aggregate.Factor = 1
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateRateBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Geocode.RateRPS = 0

	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "geocode.rate_rps must be > 0")
}

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

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "finreport.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.InDelta(t, 2.0, cfg.OpenRouter.RequestsPerSecond, 0.001)
	assert.Equal(t, "auto", cfg.Models.Extraction)
	assert.Equal(t, "auto", cfg.Models.Analysis)
	assert.Equal(t, 300, cfg.Pipeline.StageTimeoutSecs)
	assert.Equal(t, 8192, cfg.Pipeline.MaxTokens)
	assert.Equal(t, 4, cfg.Pipeline.MaxConcurrentRuns)
	assert.InDelta(t, 0.01, cfg.Consistency.BalanceSheetTolerance, 0.0001)
	assert.InDelta(t, 0.01, cfg.Consistency.FCFTolerance, 0.0001)
	assert.InDelta(t, 1000, cfg.Consistency.AbsoluteFloor, 0.001)
	assert.Equal(t, "documents", cfg.Documents.Dir)
	assert.InDelta(t, 0.15, cfg.Pricing.Models["openai/gpt-4o-mini"].Input, 0.001)
	assert.InDelta(t, 15.00, cfg.Pricing.Models["claude-sonnet-4-5-20250929"].Output, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/finreport
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  max_concurrent_runs: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/finreport", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Pipeline.MaxConcurrentRuns)
	// Defaults still apply for unset values
	assert.Equal(t, 300, cfg.Pipeline.StageTimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FINREPORT_STORE_DRIVER", "postgres")
	t.Setenv("FINREPORT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("FINREPORT_SERVER_PORT", "3000")

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

// validDefaults returns a Config populated enough to pass validation.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.OpenRouter.Key = "sk-or-key"
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "finreport.db"
	cfg.Pipeline.StageTimeoutSecs = 300
	cfg.Pipeline.MaxConcurrentRuns = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateAnalyze_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateAnalyze_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.OpenRouter.Key = ""
	cfg.Anthropic.Key = ""

	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "openrouter.key or anthropic.key is required")
}

func TestValidateAnalyze_AnthropicKeySuffices(t *testing.T) {
	cfg := validDefaults()
	cfg.OpenRouter.Key = ""
	cfg.Anthropic.Key = "sk-ant-key"

	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateStoreDriver(t *testing.T) {
	cfg := validDefaults()

	cfg.Store.Driver = "postgres"
	err := cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/finreport"
	assert.NoError(t, cfg.Validate("analyze"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("analyze")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.MaxConcurrentRuns = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_runs must be between 1 and 64")

	cfg.Pipeline.MaxConcurrentRuns = 65
	err = cfg.Validate("serve")
	assert.Error(t, err)

	cfg.Pipeline.MaxConcurrentRuns = 64
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

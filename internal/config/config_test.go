package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
app:
  env: prod
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, defaultAppLogLevel, cfg.App.LogLevel)
	assert.Equal(t, defaultBinanceREST, cfg.Binance.RESTBaseURL)
	assert.Equal(t, defaultBinanceQuote, cfg.Binance.QuoteAsset)
	assert.Equal(t, defaultAnalysisTarget, cfg.Analysis.TargetCount)
	assert.Equal(t, defaultAnalysisTimeframe, cfg.Analysis.Timeframe)
	assert.Equal(t, defaultAnalysisMode, cfg.Analysis.SourceMode)
	// max_fetch 默认跟随 target_count
	assert.Equal(t, cfg.Analysis.TargetCount+10, cfg.Analysis.MaxFetch)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
analysis:
  target_count: 5
  max_fetch: 30
  source_mode: archive
ranking:
  api_key: test-key
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Analysis.TargetCount)
	assert.Equal(t, 30, cfg.Analysis.MaxFetch)
	assert.Equal(t, "archive", cfg.Analysis.SourceMode)
	assert.Equal(t, "test-key", cfg.Ranking.APIKey)
}

func TestLoadRejectsBadMode(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
analysis:
  source_mode: streaming
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_mode")
}

func TestLoadIncludeMerge(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	main := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(base, []byte(`
app:
  log_level: debug
`), 0o644))
	require.NoError(t, os.WriteFile(main, []byte(`
include:
  - base.yaml
app:
  env: prod
`), 0o644))

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

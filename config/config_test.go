package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "backtest: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, 100000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.01, cfg.Backtest.RiskPerTrade)
	assert.Equal(t, 0.05, cfg.Backtest.MaxPositionPct)
	assert.Equal(t, 100, cfg.Backtest.AbsoluteMaxContracts)
	assert.Equal(t, 0.10, cfg.Backtest.MaxDrawdownPct)
	assert.Equal(t, 5, cfg.Backtest.ExitToleranceDays)
	assert.Equal(t, "voltrader.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
backtest:
  initial_capital: 50000
  risk_per_trade: 0.02
  max_drawdown_pct: 0.15
  workers: 4
  static_sizing: true
data:
  signals_path: /tmp/signals.csv
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 50000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.02, cfg.Backtest.RiskPerTrade)
	assert.Equal(t, 0.15, cfg.Backtest.MaxDrawdownPct)
	assert.Equal(t, 4, cfg.Backtest.Workers)
	assert.True(t, cfg.Backtest.StaticSizing)
	assert.Equal(t, "/tmp/signals.csv", cfg.Data.SignalsPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STORAGE_DSN", "/tmp/override.db")
	t.Setenv("INITIAL_CAPITAL", "25000")

	cfg, err := Load(writeConfig(t, "log:\n  level: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.DSN)
	assert.Equal(t, 25000.0, cfg.Backtest.InitialCapital)
}

func TestLoad_InvalidRiskParams(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
	}{
		{"negative capital", "backtest:\n  initial_capital: -1\n"},
		{"risk above one", "backtest:\n  risk_per_trade: 1.5\n"},
		{"drawdown one", "backtest:\n  max_drawdown_pct: 1\n"},
		{"negative contracts", "backtest:\n  absolute_max_contracts: -5\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "backtest: [not a map\n"))
	assert.Error(t, err)
}

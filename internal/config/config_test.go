package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sites_download", cfg.Snapshot.DownloadDir)
	assert.Equal(t, "sites_results", cfg.Snapshot.ResultsDir)
	assert.Equal(t, "30s", cfg.Fetch.Timeout)
	assert.Equal(t, 0.0, cfg.Arbitrage.MinProfit)

	// Default adapter set: the historical three enabled, skinwallet off.
	require.Len(t, cfg.Sources, 4)
	enabled := map[string]bool{}
	for _, s := range cfg.Sources {
		enabled[s.Name] = s.Enabled
	}
	assert.True(t, enabled["csdeals"])
	assert.True(t, enabled["shadowpay"])
	assert.True(t, enabled["skinport"])
	assert.False(t, enabled["skinwallet"])
}

func TestLoad_FromFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log_level: debug
arbitrage:
  min_profit: 1.5
sources:
  - name: csdeals
    enabled: true
    commission: 0.02
  - name: skinwallet
    enabled: true
    commission: 0.05
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1.5, cfg.Arbitrage.MinProfit)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "skinwallet", cfg.Sources[1].Name)
	assert.True(t, cfg.Sources[1].Enabled)
}

func TestLoad_InvalidCommission(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
sources:
  - name: csdeals
    enabled: true
    commission: 1.2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commission rate")
}

func TestLoad_DuplicateSource(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
sources:
  - name: csdeals
    commission: 0.02
  - name: csdeals
    commission: 0.03
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source")
}

func TestCommissionRates(t *testing.T) {
	cfg := &Config{Sources: []SourceConfig{
		{Name: "csdeals", Commission: 0.02},
		{Name: "skinport", Commission: 0.12},
	}}

	rates := cfg.CommissionRates()
	require.Len(t, rates, 2)
	assert.True(t, rates["csdeals"].Equal(decimal.NewFromFloat(0.02)))
	assert.True(t, rates["skinport"].Equal(decimal.NewFromFloat(0.12)))
}

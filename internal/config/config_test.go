package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/altbasket/internal/beta"
	"github.com/sawpanic/altbasket/internal/hedge"
	"github.com/sawpanic/altbasket/internal/regime"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
regime:
  taxonomy: five_state
  strong_low_threshold: -0.7
  strong_high_threshold: 0.7
hedge:
  mode: beta_neutral
beta:
  default_pair:
    beta_a: 0.5
    beta_b: 0.5
sim:
  fee_rate: 0.002
`))
	require.NoError(t, err)

	assert.Equal(t, regime.FiveState, cfg.Regime.Taxonomy)
	assert.Equal(t, hedge.BetaNeutral, cfg.Hedge.Mode)
	assert.Equal(t, beta.Estimate{BetaA: 0.5, BetaB: 0.5}, cfg.Beta.DefaultPair)
	assert.Equal(t, 0.002, cfg.Sim.FeeRate)

	// Untouched sections keep production defaults.
	assert.Equal(t, 2.0, cfg.Hedge.GrossCap)
	assert.Equal(t, "BTC", cfg.Sim.BenchmarkA)
	assert.Equal(t, 0.05, cfg.Regime.Hysteresis)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, `
regime:
  low_threshold: 0.5
  high_threshold: -0.5
`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "hedge: [not, a, map]\n"))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_ShipsWithValidExampleConfig(t *testing.T) {
	path := filepath.Join("..", "..", "config", "altbasket.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("example config not present in this checkout")
	}
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

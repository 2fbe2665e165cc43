package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
arbiter:
  symbols: [aapl, AAPL, msft]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Consensus.TierOneScore)
	assert.Equal(t, 0.40, cfg.Consensus.QualityMinimum)
	assert.Equal(t, -8.0, cfg.Agents.Swing.StopLossPct)
	assert.Equal(t, -3.0, cfg.Agents.Scalp.StopLossPct)
	assert.Equal(t, "SQQQ", cfg.Agents.Hedge.Instrument)
	assert.Equal(t, 20, cfg.Feedback.Window)
	assert.Equal(t, "15m", cfg.Arbiter.CycleInterval)
	assert.Equal(t, []string{"hedge", "swing", "scalp"}, cfg.Arbiter.Priority)
	assert.Equal(t, ":9982", cfg.App.HTTPAddr)
	// symbols uppercased and deduped
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Arbiter.Symbols)
}

func TestLoadMergesIncludesRootWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
consensus:
  tier_one_score: 90
  tier_two_score: 70
app:
  log_level: debug
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
consensus:
  tier_one_score: 85
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 85.0, cfg.Consensus.TierOneScore)
	assert.Equal(t, 70.0, cfg.Consensus.TierTwoScore)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.ErrorContains(t, err, "include cycle")
}

func TestLoadRejectsBadTierOrdering(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
consensus:
  tier_one_score: 50
  tier_two_score: 65
  tier_three_score: 80
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "strictly descending")
}

func TestLoadRejectsPositiveStopLoss(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
agents:
  swing:
    stop_loss_pct: 8
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "stop_loss_pct")
}

func TestLoadRejectsIncompletePriority(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
arbiter:
  priority: [swing, scalp]
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "priority")
}

func TestExplicitKeysSurviveDefaulting(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
agents:
  swing:
    stop_loss_pct: -12
feedback:
  window: 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, -12.0, cfg.Agents.Swing.StopLossPct)
	assert.Equal(t, 50, cfg.Feedback.Window)
}

package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Consensus: config.ConsensusConfig{
			TierOneScore:       80,
			TierTwoScore:       65,
			TierThreeScore:     50,
			QualityMinimum:     0.40,
			QualityTierTwo:     0.60,
			QualityTierOne:     0.80,
			VetoStrength:       0.70,
			WeakObjectionFloor: 0.30,
			ObjectorSumReduce:  0.5,
			ReducedSizeCap:     0.5,
		},
		Agents: config.AgentsConfig{
			Swing: config.SwingConfig{
				MinDataQuality: 80, EntryFundamental: 65, EntryTechnical: 60,
				EntryMacro: 20, EntryNews: 40,
				BaseExposurePct: 0.05, MaxExposurePct: 0.12,
				StopLossPct: -8, TakeProfitPct: 15, TakeProfitTechnical: 85,
				TrailingActivatePct: 5, TrailingDropPct: 2.5, DeteriorationScore: 40,
			},
			Scalp: config.ScalpConfig{
				MinDataQuality: 60, EntryNews: 70, EntryTechnical: 55, EntryMacro: 40,
				BaseExposurePct: 0.03, MaxExposurePct: 0.05,
				StopLossPct: -3, TakeProfitPct: 5,
			},
			Hedge: config.HedgeConfig{
				Instrument: "SQQQ", EntryMacroBelow: 25, DeepMacroBelow: 15,
				ExposurePct: 0.10, DeepExposurePct: 0.20, ExitMacroAbove: 40,
			},
			MacroRisk: config.MacroRiskConfig{
				RiskOnScore: 65, RiskOnMultiplier: 1.5,
				RiskOffScore: 40, RiskOffMultiplier: 0.3,
			},
		},
		Feedback: config.FeedbackConfig{
			Window: 20, MinSamples: 5,
			LowWinRate: 0.40, HighWinRate: 0.60,
			LowMultiplier: 0.70, HighMultiplier: 1.30,
		},
		Arbiter: config.ArbiterConfig{
			Symbols:              []string{"AAPL"},
			Priority:             []string{"hedge", "swing", "scalp"},
			MaxSymbolExposurePct: 0.10,
			CycleInterval:        "15m",
		},
	}
}

func writeTuningFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMergeAppliesSparseOverrides(t *testing.T) {
	base := baseConfig()
	merged, err := Merge(base, map[string]any{
		"consensus": map[string]any{"tier_one_score": 85},
		"agents": map[string]any{
			"swing": map[string]any{"base_exposure_pct": 0.04},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 85.0, merged.Consensus.TierOneScore)
	assert.Equal(t, 0.04, merged.Agents.Swing.BaseExposurePct)
	// untouched sections keep base values, and the base is not mutated
	assert.Equal(t, 65.0, merged.Consensus.TierTwoScore)
	assert.Equal(t, 80.0, base.Consensus.TierOneScore)
	assert.Equal(t, 0.05, base.Agents.Swing.BaseExposurePct)
}

func TestMergeRejectsInvalidResult(t *testing.T) {
	_, err := Merge(baseConfig(), map[string]any{
		// tier ordering would be violated
		"consensus": map[string]any{"tier_one_score": 10},
	})
	assert.Error(t, err)
}

func TestNewRegistryLoadsOverrides(t *testing.T) {
	path := writeTuningFile(t, `
overrides:
  consensus:
    tier_one_score: 82
  feedback:
    window: 30
`)
	r, err := NewRegistry(path, baseConfig())
	require.NoError(t, err)
	cfg := r.Current()
	assert.Equal(t, 82.0, cfg.Consensus.TierOneScore)
	assert.Equal(t, 30, cfg.Feedback.Window)
}

func TestNewRegistryRejectsUnknownSection(t *testing.T) {
	path := writeTuningFile(t, `
overrides:
  execution:
    anything: 1
`)
	_, err := NewRegistry(path, baseConfig())
	assert.Error(t, err)
}

func TestNewRegistryRejectsUnknownTopLevelKey(t *testing.T) {
	path := writeTuningFile(t, `
override: {}
`)
	_, err := NewRegistry(path, baseConfig())
	assert.Error(t, err)
}

func TestEmptyFileYieldsBase(t *testing.T) {
	path := writeTuningFile(t, "overrides: {}\n")
	r, err := NewRegistry(path, baseConfig())
	require.NoError(t, err)
	assert.Equal(t, 80.0, r.Current().Consensus.TierOneScore)
}

func TestSubscribeDeliversCurrentImmediately(t *testing.T) {
	path := writeTuningFile(t, `
overrides:
  consensus:
    tier_one_score: 90
`)
	r, err := NewRegistry(path, baseConfig())
	require.NoError(t, err)

	var got *config.Config
	r.Subscribe(func(c *config.Config) { got = c })
	require.NotNil(t, got)
	assert.Equal(t, 90.0, got.Consensus.TierOneScore)
}

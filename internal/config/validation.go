package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate re-checks a config after programmatic mutation, e.g. a tuning
// override merge.
func (c *Config) Validate() error {
	return validate(c)
}

func validate(c *Config) error {
	if err := c.Consensus.validate(); err != nil {
		return err
	}
	if err := c.Agents.validate(); err != nil {
		return err
	}
	if err := c.Feedback.validate(); err != nil {
		return err
	}
	if err := c.Arbiter.validate(); err != nil {
		return err
	}
	return nil
}

func (c *ConsensusConfig) validate() error {
	if !(c.TierOneScore > c.TierTwoScore && c.TierTwoScore > c.TierThreeScore) {
		return fmt.Errorf("consensus tier scores must be strictly descending, got %.0f/%.0f/%.0f",
			c.TierOneScore, c.TierTwoScore, c.TierThreeScore)
	}
	for key, v := range map[string]float64{
		"consensus.quality_minimum":      c.QualityMinimum,
		"consensus.quality_tier_two":     c.QualityTierTwo,
		"consensus.quality_tier_one":     c.QualityTierOne,
		"consensus.veto_strength":        c.VetoStrength,
		"consensus.weak_objection_floor": c.WeakObjectionFloor,
		"consensus.objector_sum_reduce":  c.ObjectorSumReduce,
		"consensus.reduced_size_cap":     c.ReducedSizeCap,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", key, v)
		}
	}
	if !(c.QualityTierOne > c.QualityTierTwo && c.QualityTierTwo > c.QualityMinimum) {
		return fmt.Errorf("consensus quality gates must be strictly descending")
	}
	if c.WeakObjectionFloor >= c.VetoStrength {
		return fmt.Errorf("consensus.weak_objection_floor must be below veto_strength")
	}
	return nil
}

func (a *AgentsConfig) validate() error {
	if a.Swing.BaseExposurePct <= 0 || a.Swing.BaseExposurePct > a.Swing.MaxExposurePct {
		return fmt.Errorf("agents.swing exposure must satisfy 0 < base <= max")
	}
	if a.Scalp.BaseExposurePct <= 0 || a.Scalp.BaseExposurePct > a.Scalp.MaxExposurePct {
		return fmt.Errorf("agents.scalp exposure must satisfy 0 < base <= max")
	}
	if a.Swing.StopLossPct >= 0 || a.Scalp.StopLossPct >= 0 {
		return fmt.Errorf("agent stop_loss_pct must be negative")
	}
	if strings.TrimSpace(a.Hedge.Instrument) == "" {
		return fmt.Errorf("agents.hedge.instrument cannot be empty")
	}
	if a.Hedge.DeepMacroBelow >= a.Hedge.EntryMacroBelow {
		return fmt.Errorf("agents.hedge.deep_macro_below must be below entry_macro_below")
	}
	if a.Hedge.EntryMacroBelow >= a.Hedge.ExitMacroAbove {
		return fmt.Errorf("agents.hedge.entry_macro_below must be below exit_macro_above")
	}
	return nil
}

func (f *FeedbackConfig) validate() error {
	if f.MinSamples > f.Window {
		return fmt.Errorf("feedback.min_samples cannot exceed window")
	}
	if f.LowWinRate >= f.HighWinRate {
		return fmt.Errorf("feedback.low_win_rate must be below high_win_rate")
	}
	if f.LowMultiplier <= 0 || f.LowMultiplier > 1 || f.HighMultiplier < 1 {
		return fmt.Errorf("feedback multipliers must satisfy 0 < low <= 1 <= high")
	}
	return nil
}

func (a *ArbiterConfig) validate() error {
	if a.MaxSymbolExposurePct <= 0 || a.MaxSymbolExposurePct > 1 {
		return fmt.Errorf("arbiter.max_symbol_exposure_pct must be in (0,1]")
	}
	if _, err := time.ParseDuration(a.CycleInterval); err != nil {
		return fmt.Errorf("arbiter.cycle_interval invalid: %w", err)
	}
	seen := make(map[string]bool, len(a.Priority))
	for _, name := range a.Priority {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "swing" && name != "scalp" && name != "hedge" {
			return fmt.Errorf("arbiter.priority contains unknown agent: %s", name)
		}
		if seen[name] {
			return fmt.Errorf("arbiter.priority repeats agent: %s", name)
		}
		seen[name] = true
	}
	if len(seen) != 3 {
		return fmt.Errorf("arbiter.priority must list all of hedge, swing, scalp")
	}
	return nil
}

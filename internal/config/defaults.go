package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9982"
	defaultAppLogPath  = ""

	defaultTierOneScore   = 80.0
	defaultTierTwoScore   = 65.0
	defaultTierThreeScore = 50.0
	defaultQualityMinimum = 0.40
	defaultQualityTierTwo = 0.60
	defaultQualityTierOne = 0.80
	defaultVetoStrength   = 0.70
	defaultWeakObjection  = 0.30
	defaultObjectorSum    = 0.5
	defaultReducedSizeCap = 0.5

	defaultFeedbackWindow  = 20
	defaultFeedbackMinN    = 5
	defaultFeedbackLowWR   = 0.40
	defaultFeedbackHighWR  = 0.60
	defaultFeedbackLowMul  = 0.70
	defaultFeedbackHighMul = 1.30

	defaultMaxSymbolExposure = 0.10
	defaultCycleInterval     = "15m"
	defaultHedgeInstrument   = "SQQQ"

	defaultWeightsPath     = "data/arbiter.db"
	defaultDecisionLogPath = "data/decisions.db"
	defaultJournalPath     = "data/journal.db"
	defaultTuningPath      = "configs/tuning.yaml"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Consensus.applyDefaults(keys)
	c.Agents.applyDefaults(keys)
	c.Feedback.applyDefaults(keys)
	c.Arbiter.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Tuning.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (c *ConsensusConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("consensus.tier_one_score", &c.TierOneScore, defaultTierOneScore),
		floatFieldDefault("consensus.tier_two_score", &c.TierTwoScore, defaultTierTwoScore),
		floatFieldDefault("consensus.tier_three_score", &c.TierThreeScore, defaultTierThreeScore),
		floatFieldDefault("consensus.quality_minimum", &c.QualityMinimum, defaultQualityMinimum),
		floatFieldDefault("consensus.quality_tier_two", &c.QualityTierTwo, defaultQualityTierTwo),
		floatFieldDefault("consensus.quality_tier_one", &c.QualityTierOne, defaultQualityTierOne),
		floatFieldDefault("consensus.veto_strength", &c.VetoStrength, defaultVetoStrength),
		floatFieldDefault("consensus.weak_objection_floor", &c.WeakObjectionFloor, defaultWeakObjection),
		floatFieldDefault("consensus.objector_sum_reduce", &c.ObjectorSumReduce, defaultObjectorSum),
		floatFieldDefault("consensus.reduced_size_cap", &c.ReducedSizeCap, defaultReducedSizeCap),
	)
}

func (a *AgentsConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	a.Swing.applyDefaults(keys)
	a.Scalp.applyDefaults(keys)
	a.Hedge.applyDefaults(keys)
	a.MacroRisk.applyDefaults(keys)
}

func (m *MacroRiskConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("agents.macro_risk.risk_on_score", &m.RiskOnScore, 65),
		floatFieldDefault("agents.macro_risk.risk_on_multiplier", &m.RiskOnMultiplier, 1.5),
		floatFieldDefault("agents.macro_risk.risk_off_score", &m.RiskOffScore, 40),
		floatFieldDefault("agents.macro_risk.risk_off_multiplier", &m.RiskOffMultiplier, 0.3),
	)
}

func (s *SwingConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("agents.swing.min_data_quality", &s.MinDataQuality, 80),
		floatFieldDefault("agents.swing.entry_fundamental", &s.EntryFundamental, 65),
		floatFieldDefault("agents.swing.entry_technical", &s.EntryTechnical, 60),
		floatFieldDefault("agents.swing.entry_macro", &s.EntryMacro, 20),
		floatFieldDefault("agents.swing.entry_news", &s.EntryNews, 40),
		floatFieldDefault("agents.swing.base_exposure_pct", &s.BaseExposurePct, 0.05),
		floatFieldDefault("agents.swing.max_exposure_pct", &s.MaxExposurePct, 0.12),
		floatFieldDefault("agents.swing.take_profit_pct", &s.TakeProfitPct, 15),
		floatFieldDefault("agents.swing.take_profit_technical", &s.TakeProfitTechnical, 85),
		floatFieldDefault("agents.swing.trailing_activate_pct", &s.TrailingActivatePct, 5),
		floatFieldDefault("agents.swing.trailing_drop_pct", &s.TrailingDropPct, 2.5),
		floatFieldDefault("agents.swing.deterioration_score", &s.DeteriorationScore, 40),
	)
	// stop loss is negative, so the usual <=0 probe cannot drive it
	if !keys.isSet("agents.swing.stop_loss_pct") && s.StopLossPct == 0 {
		s.StopLossPct = -8
	}
}

func (s *ScalpConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("agents.scalp.min_data_quality", &s.MinDataQuality, 60),
		floatFieldDefault("agents.scalp.entry_news", &s.EntryNews, 70),
		floatFieldDefault("agents.scalp.entry_technical", &s.EntryTechnical, 55),
		floatFieldDefault("agents.scalp.entry_macro", &s.EntryMacro, 40),
		floatFieldDefault("agents.scalp.base_exposure_pct", &s.BaseExposurePct, 0.03),
		floatFieldDefault("agents.scalp.max_exposure_pct", &s.MaxExposurePct, 0.05),
		floatFieldDefault("agents.scalp.take_profit_pct", &s.TakeProfitPct, 5),
	)
	if !keys.isSet("agents.scalp.stop_loss_pct") && s.StopLossPct == 0 {
		s.StopLossPct = -3
	}
}

func (h *HedgeConfig) applyDefaults(keys keySet) {
	if h == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("agents.hedge.instrument", &h.Instrument, defaultHedgeInstrument),
		floatFieldDefault("agents.hedge.entry_macro_below", &h.EntryMacroBelow, 25),
		floatFieldDefault("agents.hedge.deep_macro_below", &h.DeepMacroBelow, 15),
		floatFieldDefault("agents.hedge.exposure_pct", &h.ExposurePct, 0.10),
		floatFieldDefault("agents.hedge.deep_exposure_pct", &h.DeepExposurePct, 0.20),
		floatFieldDefault("agents.hedge.exit_macro_above", &h.ExitMacroAbove, 40),
	)
}

func (f *FeedbackConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "feedback.window",
			need:  func() bool { return f.Window <= 0 },
			apply: func() { f.Window = defaultFeedbackWindow },
		},
		fieldDefault{
			key:   "feedback.min_samples",
			need:  func() bool { return f.MinSamples <= 0 },
			apply: func() { f.MinSamples = defaultFeedbackMinN },
		},
		floatFieldDefault("feedback.low_win_rate", &f.LowWinRate, defaultFeedbackLowWR),
		floatFieldDefault("feedback.high_win_rate", &f.HighWinRate, defaultFeedbackHighWR),
		floatFieldDefault("feedback.low_multiplier", &f.LowMultiplier, defaultFeedbackLowMul),
		floatFieldDefault("feedback.high_multiplier", &f.HighMultiplier, defaultFeedbackHighMul),
	)
}

func (a *ArbiterConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("arbiter.max_symbol_exposure_pct", &a.MaxSymbolExposurePct, defaultMaxSymbolExposure),
		stringFieldDefault("arbiter.cycle_interval", &a.CycleInterval, defaultCycleInterval),
	)
	if len(a.Priority) == 0 {
		a.Priority = []string{"hedge", "swing", "scalp"}
	}
	a.Symbols = dedupeSymbols(a.Symbols)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.weights_path", &s.WeightsPath, defaultWeightsPath),
		stringFieldDefault("store.decision_log_path", &s.DecisionLogPath, defaultDecisionLogPath),
		stringFieldDefault("store.journal_path", &s.JournalPath, defaultJournalPath),
	)
}

func (t *TuningConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("tuning.path", &t.Path, defaultTuningPath),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func dedupeSymbols(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

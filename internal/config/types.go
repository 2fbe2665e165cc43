package config

import "strings"

// Config is the root configuration carrier.
type Config struct {
	App       AppConfig       `toml:"app"`
	Consensus ConsensusConfig `toml:"consensus"`
	Agents    AgentsConfig    `toml:"agents"`
	Feedback  FeedbackConfig  `toml:"feedback"`
	Arbiter   ArbiterConfig   `toml:"arbiter"`
	Store     StoreConfig     `toml:"store"`
	Tuning    TuningConfig    `toml:"tuning"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// ConsensusConfig holds the tier and gate thresholds of the consensus engine.
// Scores are on the 0-100 scale, qualities and sizes on 0-1.
type ConsensusConfig struct {
	TierOneScore   float64 `toml:"tier_one_score"`
	TierTwoScore   float64 `toml:"tier_two_score"`
	TierThreeScore float64 `toml:"tier_three_score"`

	QualityMinimum  float64 `toml:"quality_minimum"`
	QualityTierTwo  float64 `toml:"quality_tier_two"`
	QualityTierOne  float64 `toml:"quality_tier_one"`

	VetoStrength       float64 `toml:"veto_strength"`
	WeakObjectionFloor float64 `toml:"weak_objection_floor"`
	ObjectorSumReduce  float64 `toml:"objector_sum_reduce"`
	ReducedSizeCap     float64 `toml:"reduced_size_cap"`
}

type AgentsConfig struct {
	Swing     SwingConfig     `toml:"swing"`
	Scalp     ScalpConfig     `toml:"scalp"`
	Hedge     HedgeConfig     `toml:"hedge"`
	MacroRisk MacroRiskConfig `toml:"macro_risk"`
}

// MacroRiskConfig maps the macro regime score onto a sizing multiplier.
type MacroRiskConfig struct {
	RiskOnScore       float64 `toml:"risk_on_score"`
	RiskOnMultiplier  float64 `toml:"risk_on_multiplier"`
	RiskOffScore      float64 `toml:"risk_off_score"`
	RiskOffMultiplier float64 `toml:"risk_off_multiplier"`
}

type SwingConfig struct {
	MinDataQuality   float64 `toml:"min_data_quality"`
	EntryFundamental float64 `toml:"entry_fundamental"`
	EntryTechnical   float64 `toml:"entry_technical"`
	EntryMacro       float64 `toml:"entry_macro"`
	EntryNews        float64 `toml:"entry_news"`

	BaseExposurePct float64 `toml:"base_exposure_pct"`
	MaxExposurePct  float64 `toml:"max_exposure_pct"`

	StopLossPct          float64 `toml:"stop_loss_pct"`
	TakeProfitPct        float64 `toml:"take_profit_pct"`
	TakeProfitTechnical  float64 `toml:"take_profit_technical"`
	TrailingActivatePct  float64 `toml:"trailing_activate_pct"`
	TrailingDropPct      float64 `toml:"trailing_drop_pct"`
	DeteriorationScore   float64 `toml:"deterioration_score"`
}

type ScalpConfig struct {
	MinDataQuality float64 `toml:"min_data_quality"`
	EntryNews      float64 `toml:"entry_news"`
	EntryTechnical float64 `toml:"entry_technical"`
	EntryMacro     float64 `toml:"entry_macro"`

	BaseExposurePct float64 `toml:"base_exposure_pct"`
	MaxExposurePct  float64 `toml:"max_exposure_pct"`

	StopLossPct   float64 `toml:"stop_loss_pct"`
	TakeProfitPct float64 `toml:"take_profit_pct"`
}

// HedgeConfig drives the macro-only hedge agent. Instrument is the single
// symbol the agent is allowed to trade.
type HedgeConfig struct {
	Instrument      string  `toml:"instrument"`
	EntryMacroBelow float64 `toml:"entry_macro_below"`
	DeepMacroBelow  float64 `toml:"deep_macro_below"`
	ExposurePct     float64 `toml:"exposure_pct"`
	DeepExposurePct float64 `toml:"deep_exposure_pct"`
	ExitMacroAbove  float64 `toml:"exit_macro_above"`
}

type FeedbackConfig struct {
	Window         int     `toml:"window"`
	MinSamples     int     `toml:"min_samples"`
	LowWinRate     float64 `toml:"low_win_rate"`
	HighWinRate    float64 `toml:"high_win_rate"`
	LowMultiplier  float64 `toml:"low_multiplier"`
	HighMultiplier float64 `toml:"high_multiplier"`
}

type ArbiterConfig struct {
	Symbols              []string `toml:"symbols"`
	Priority             []string `toml:"priority"`
	MaxSymbolExposurePct float64  `toml:"max_symbol_exposure_pct"`
	CycleInterval        string   `toml:"cycle_interval"`
}

type StoreConfig struct {
	WeightsPath     string `toml:"weights_path"`
	DecisionLogPath string `toml:"decision_log_path"`
	JournalPath     string `toml:"journal_path"`
}

type TuningConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// keySet tracks the field paths explicitly set in config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault is one field's defaulting rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

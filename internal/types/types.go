// Package types holds the shared domain model of the arbitration core.
package types

import "strings"

// Action is the final verb of a proposal or decision.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
	ActionSkip Action = "skip"
)

// Directional reports whether the action opens or closes exposure.
func (a Action) Directional() bool {
	return a == ActionBuy || a == ActionSell
}

// Opposes reports whether two directional actions point in opposite directions.
func (a Action) Opposes(other Action) bool {
	return (a == ActionBuy && other == ActionSell) || (a == ActionSell && other == ActionBuy)
}

// AgentID identifies one of the strategy agents sharing the capital pool.
type AgentID string

const (
	AgentSwing AgentID = "swing"
	AgentScalp AgentID = "scalp"
	AgentHedge AgentID = "hedge"
)

// ParseAgentID normalizes a raw agent name. ok is false for unknown names.
func ParseAgentID(raw string) (AgentID, bool) {
	switch AgentID(strings.ToLower(strings.TrimSpace(raw))) {
	case AgentSwing:
		return AgentSwing, true
	case AgentScalp:
		return AgentScalp, true
	case AgentHedge:
		return AgentHedge, true
	default:
		return "", false
	}
}

// Module tags the analytical source of an opinion or weight component.
type Module string

const (
	ModuleFundamental Module = "fundamental"
	ModuleTechnical   Module = "technical"
	ModuleMacro       Module = "macro"
	ModuleNews        Module = "news"
	ModulePattern     Module = "pattern"
)

// TechnicalClass reports whether the module carries technical authority;
// only these modules can veto a buy.
func (m Module) TechnicalClass() bool {
	return m == ModuleTechnical || m == ModulePattern
}

// Stance is an opinion's position relative to the claimed direction.
type Stance string

const (
	StanceSupport Stance = "support"
	StanceObject  Stance = "object"
	StanceNeutral Stance = "neutral"
)

// ModuleOpinion is one analytical module's vote for a single evaluation.
// Strength is conviction in [0,1]; Evidence lines are ordered, most
// relevant first.
type ModuleOpinion struct {
	Module          Module   `json:"module"`
	Stance          Stance   `json:"stance"`
	Strength        float64  `json:"strength"`
	PreferredAction Action   `json:"preferred_action"`
	Evidence        []string `json:"evidence,omitempty"`
}

// FirstEvidence returns the leading evidence line, if any.
func (o ModuleOpinion) FirstEvidence() string {
	if len(o.Evidence) == 0 {
		return ""
	}
	return o.Evidence[0]
}

// MacroRating is the macro module's view of the market regime.
type MacroRating struct {
	Score  float64 `json:"score"`
	Regime string  `json:"regime,omitempty"`
}

// NewsInsight is the news module's aggregated signal for a symbol, scored
// 0-100 like the other components.
type NewsInsight struct {
	Score     float64 `json:"score"`
	Sentiment string  `json:"sentiment,omitempty"`
}

// Candle is a single OHLCV bar supplied by the market-data collaborator.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

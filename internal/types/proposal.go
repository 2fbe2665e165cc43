package types

import "fmt"

// ComponentScores carries the 0-100 analytical scores a proposal was built
// from. Nil pointer means the component had no data this cycle.
type ComponentScores struct {
	Fundamental *float64 `json:"fundamental,omitempty"`
	Technical   *float64 `json:"technical,omitempty"`
	Macro       *float64 `json:"macro,omitempty"`
	News        *float64 `json:"news,omitempty"`
	Pattern     *float64 `json:"pattern,omitempty"`
}

// Get returns the score for a module and whether it is present.
func (c ComponentScores) Get(m Module) (float64, bool) {
	var p *float64
	switch m {
	case ModuleFundamental:
		p = c.Fundamental
	case ModuleTechnical:
		p = c.Technical
	case ModuleMacro:
		p = c.Macro
	case ModuleNews:
		p = c.News
	case ModulePattern:
		p = c.Pattern
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Proposal is a strategy agent's intent for one symbol in one cycle.
// Exactly one of TargetExposurePct and Quantity is expected for directional
// actions; hold and skip carry neither.
type Proposal struct {
	Agent             AgentID         `json:"agent"`
	Symbol            string          `json:"symbol"`
	Action            Action          `json:"action"`
	TargetExposurePct *float64        `json:"target_exposure_pct,omitempty"`
	Quantity          *float64        `json:"quantity,omitempty"`
	Rationale         string          `json:"rationale"`
	Confidence        float64         `json:"confidence"`
	DataQualityScore  float64         `json:"data_quality_score"`
	Components        ComponentScores `json:"components,omitempty"`
}

// SkipProposal builds the degenerate proposal an agent emits when it has
// nothing to do or failed internally.
func SkipProposal(agent AgentID, symbol, reason string) Proposal {
	return Proposal{
		Agent:     agent,
		Symbol:    symbol,
		Action:    ActionSkip,
		Rationale: reason,
	}
}

// HoldProposal marks an open position the agent wants left alone.
func HoldProposal(agent AgentID, symbol, reason string) Proposal {
	return Proposal{
		Agent:     agent,
		Symbol:    symbol,
		Action:    ActionHold,
		Rationale: reason,
	}
}

// Actionable reports whether the arbiter should consider this proposal at all.
func (p Proposal) Actionable() bool {
	return p.Action.Directional()
}

func (p Proposal) String() string {
	return fmt.Sprintf("%s/%s %s conf=%.0f dq=%.0f", p.Agent, p.Symbol, p.Action, p.Confidence, p.DataQualityScore)
}

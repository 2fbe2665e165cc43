// Package agent implements the strategy agents that turn analytical scores
// into trade proposals. Each agent runs the same pipeline: data-quality gate,
// management of its own open position, then entry evaluation.
package agent

import (
	"context"

	"arbiter/internal/config"
	"arbiter/internal/types"
)

// Context carries everything a single Propose call may read. The arbiter
// assembles it per symbol per cycle; agents never reach out on their own.
type Context struct {
	Price   float64
	PriceOK bool
	Candles []types.Candle

	Fundamental *float64
	Technical   *float64
	Pattern     *float64
	Macro       *float64
	News        *float64

	// Position is the symbol's open position regardless of owner; nil when
	// flat.
	Position *types.Position

	Weights  types.WeightVector
	Feedback float64
	Equity   float64
}

// Components exposes the gathered scores in audit form.
func (c Context) Components() types.ComponentScores {
	return types.ComponentScores{
		Fundamental: c.Fundamental,
		Technical:   c.Technical,
		Macro:       c.Macro,
		News:        c.News,
		Pattern:     c.Pattern,
	}
}

func (c Context) score(m types.Module) (float64, bool) {
	return c.Components().Get(m)
}

// StrategyAgent is one voice in the arbitration. Propose must not panic and
// must degrade internal failures to a skip proposal.
type StrategyAgent interface {
	ID() types.AgentID
	Propose(ctx context.Context, symbol string, actx Context) types.Proposal
}

// macroRiskMultiplier maps the macro regime onto a sizing multiplier.
// Missing macro data reads as neutral.
func macroRiskMultiplier(macro *float64, cfg config.MacroRiskConfig) float64 {
	if macro == nil {
		return 1.0
	}
	switch {
	case *macro >= cfg.RiskOnScore:
		return cfg.RiskOnMultiplier
	case *macro < cfg.RiskOffScore:
		return cfg.RiskOffMultiplier
	default:
		return 1.0
	}
}

func capExposure(exposure, max float64) float64 {
	if exposure > max {
		return max
	}
	if exposure < 0 {
		return 0
	}
	return exposure
}

func feedbackOrNeutral(mult float64) float64 {
	if mult <= 0 {
		return 1.0
	}
	return mult
}

func floatPtr(v float64) *float64 { return &v }

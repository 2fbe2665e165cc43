package agent

import (
	"context"
	"fmt"

	"arbiter/internal/config"
	"arbiter/internal/consensus"
	"arbiter/internal/types"
)

// Scalp trades short holds off news momentum confirmed by technicals.
type Scalp struct {
	cfg          config.ScalpConfig
	macroCfg     config.MacroRiskConfig
	consensusCfg config.ConsensusConfig
}

func NewScalp(cfg config.ScalpConfig, macroCfg config.MacroRiskConfig, consensusCfg config.ConsensusConfig) *Scalp {
	return &Scalp{cfg: cfg, macroCfg: macroCfg, consensusCfg: consensusCfg}
}

func (s *Scalp) ID() types.AgentID { return types.AgentScalp }

func (s *Scalp) Propose(_ context.Context, symbol string, actx Context) types.Proposal {
	dq := scalpDataQuality(actx)
	if dq < s.cfg.MinDataQuality {
		p := types.SkipProposal(types.AgentScalp, symbol,
			fmt.Sprintf("data quality %.0f below %.0f", dq, s.cfg.MinDataQuality))
		p.DataQualityScore = dq
		return p
	}

	if actx.Position != nil {
		if !actx.Position.OwnedBy(types.AgentScalp) {
			return types.SkipProposal(types.AgentScalp, symbol,
				fmt.Sprintf("position owned by %s", actx.Position.OwningAgent))
		}
		return s.manage(symbol, actx, dq)
	}

	return s.evaluateEntry(symbol, actx, dq)
}

// manage runs the scalp exit pair: hard stop and fixed take profit.
func (s *Scalp) manage(symbol string, actx Context, dq float64) types.Proposal {
	pos := actx.Position
	if !actx.PriceOK {
		return types.HoldProposal(types.AgentScalp, symbol, "no price, holding")
	}
	pnl := pos.PnLPercent(actx.Price)

	if pnl <= s.cfg.StopLossPct {
		return s.exit(symbol, actx, pos.Quantity, dq,
			fmt.Sprintf("stop loss: %.1f%% below entry", pnl))
	}
	if pnl >= s.cfg.TakeProfitPct {
		return s.exit(symbol, actx, pos.Quantity, dq,
			fmt.Sprintf("take profit at +%.1f%%", pnl))
	}
	return types.HoldProposal(types.AgentScalp, symbol, fmt.Sprintf("holding at %.1f%%", pnl))
}

func (s *Scalp) exit(symbol string, actx Context, quantity, dq float64, reason string) types.Proposal {
	return types.Proposal{
		Agent:            types.AgentScalp,
		Symbol:           symbol,
		Action:           types.ActionSell,
		Quantity:         floatPtr(quantity),
		Rationale:        reason,
		Confidence:       90,
		DataQualityScore: dq,
		Components:       actx.Components(),
	}
}

func (s *Scalp) evaluateEntry(symbol string, actx Context, dq float64) types.Proposal {
	checks := []struct {
		name  string
		score *float64
		min   float64
	}{
		{"news", actx.News, s.cfg.EntryNews},
		{"technical", actx.Technical, s.cfg.EntryTechnical},
		{"macro", actx.Macro, s.cfg.EntryMacro},
	}
	for _, c := range checks {
		if c.score == nil {
			return types.SkipProposal(types.AgentScalp, symbol, c.name+" score missing")
		}
		if *c.score < c.min {
			return types.SkipProposal(types.AgentScalp, symbol,
				fmt.Sprintf("%s %.0f below entry threshold %.0f", c.name, *c.score, c.min))
		}
	}

	opinions, blended, coverage := BuildOpinions(actx)
	quality := coverage * dq / 100
	decision := consensus.Evaluate(opinions, blended, quality, s.consensusCfg)
	if !decision.Approved || decision.Action != types.ActionBuy {
		p := types.SkipProposal(types.AgentScalp, symbol, decision.Rationale)
		p.DataQualityScore = dq
		return p
	}

	exposure := s.cfg.BaseExposurePct *
		macroRiskMultiplier(actx.Macro, s.macroCfg) *
		feedbackOrNeutral(actx.Feedback) *
		decision.SizeFraction
	exposure = capExposure(exposure, s.cfg.MaxExposurePct)

	return types.Proposal{
		Agent:             types.AgentScalp,
		Symbol:            symbol,
		Action:            types.ActionBuy,
		TargetExposurePct: floatPtr(exposure),
		Rationale:         decision.Rationale,
		Confidence:        blended,
		DataQualityScore:  dq,
		Components:        actx.Components(),
	}
}

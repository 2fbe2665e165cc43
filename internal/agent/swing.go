package agent

import (
	"context"
	"fmt"

	"arbiter/internal/analysis/indicator"
	"arbiter/internal/config"
	"arbiter/internal/consensus"
	"arbiter/internal/pkg/trading"
	"arbiter/internal/types"
)

const atrPeriod = 14

// Swing trades multi-day holds off fundamentals confirmed by technicals,
// macro, and news.
type Swing struct {
	cfg          config.SwingConfig
	macroCfg     config.MacroRiskConfig
	consensusCfg config.ConsensusConfig
}

func NewSwing(cfg config.SwingConfig, macroCfg config.MacroRiskConfig, consensusCfg config.ConsensusConfig) *Swing {
	return &Swing{cfg: cfg, macroCfg: macroCfg, consensusCfg: consensusCfg}
}

func (s *Swing) ID() types.AgentID { return types.AgentSwing }

func (s *Swing) Propose(_ context.Context, symbol string, actx Context) types.Proposal {
	dq := swingDataQuality(actx)
	if dq < s.cfg.MinDataQuality {
		p := types.SkipProposal(types.AgentSwing, symbol,
			fmt.Sprintf("data quality %.0f below %.0f", dq, s.cfg.MinDataQuality))
		p.DataQualityScore = dq
		return p
	}

	if actx.Position != nil {
		if !actx.Position.OwnedBy(types.AgentSwing) {
			return types.SkipProposal(types.AgentSwing, symbol,
				fmt.Sprintf("position owned by %s", actx.Position.OwningAgent))
		}
		return s.manage(symbol, actx, dq)
	}

	return s.evaluateEntry(symbol, actx, dq)
}

func (s *Swing) manage(symbol string, actx Context, dq float64) types.Proposal {
	pos := actx.Position
	if !actx.PriceOK {
		return types.HoldProposal(types.AgentSwing, symbol, "no price, holding")
	}
	pnl := pos.PnLPercent(actx.Price)

	if pnl <= s.cfg.StopLossPct {
		return s.exit(symbol, actx, pos.Quantity, dq,
			fmt.Sprintf("stop loss: %.1f%% below entry", pnl))
	}

	blended, hasBlend := s.blendedScore(actx)
	if hasBlend && blended < s.cfg.DeteriorationScore {
		return s.exit(symbol, actx, pos.Quantity, dq,
			fmt.Sprintf("thesis deteriorated: overall score %.0f", blended))
	}

	if pnl >= s.cfg.TakeProfitPct && actx.Technical != nil && *actx.Technical > s.cfg.TakeProfitTechnical {
		return s.exit(symbol, actx, pos.Quantity/2, dq,
			fmt.Sprintf("partial take profit at +%.1f%% with technicals %.0f", pnl, *actx.Technical))
	}

	hwmGain := 0.0
	if pos.EntryPrice > 0 {
		hwmGain = (pos.HighWaterMark - pos.EntryPrice) / pos.EntryPrice * 100
	}
	if hwmGain >= s.cfg.TrailingActivatePct {
		atr := indicator.ATR(actx.Candles, atrPeriod)
		stop := indicator.TrailingStop(pos.HighWaterMark, s.cfg.TrailingDropPct, atr)
		if stop > 0 && trading.LTE(actx.Price, stop) {
			return s.exit(symbol, actx, pos.Quantity, dq,
				fmt.Sprintf("trailing stop %.2f hit from high %.2f", stop, pos.HighWaterMark))
		}
	}

	return types.HoldProposal(types.AgentSwing, symbol, fmt.Sprintf("holding at %.1f%%", pnl))
}

func (s *Swing) exit(symbol string, actx Context, quantity, dq float64, reason string) types.Proposal {
	return types.Proposal{
		Agent:            types.AgentSwing,
		Symbol:           symbol,
		Action:           types.ActionSell,
		Quantity:         floatPtr(quantity),
		Rationale:        reason,
		Confidence:       90,
		DataQualityScore: dq,
		Components:       actx.Components(),
	}
}

func (s *Swing) evaluateEntry(symbol string, actx Context, dq float64) types.Proposal {
	checks := []struct {
		name  string
		score *float64
		min   float64
	}{
		{"fundamental", actx.Fundamental, s.cfg.EntryFundamental},
		{"technical", actx.Technical, s.cfg.EntryTechnical},
		{"macro", actx.Macro, s.cfg.EntryMacro},
		{"news", actx.News, s.cfg.EntryNews},
	}
	for _, c := range checks {
		if c.score == nil {
			return types.SkipProposal(types.AgentSwing, symbol, c.name+" score missing")
		}
		if *c.score < c.min {
			return types.SkipProposal(types.AgentSwing, symbol,
				fmt.Sprintf("%s %.0f below entry threshold %.0f", c.name, *c.score, c.min))
		}
	}

	opinions, blended, coverage := BuildOpinions(actx)
	quality := coverage * dq / 100
	decision := consensus.Evaluate(opinions, blended, quality, s.consensusCfg)
	if !decision.Approved || decision.Action != types.ActionBuy {
		p := types.SkipProposal(types.AgentSwing, symbol, decision.Rationale)
		p.DataQualityScore = dq
		return p
	}

	exposure := s.cfg.BaseExposurePct *
		macroRiskMultiplier(actx.Macro, s.macroCfg) *
		feedbackOrNeutral(actx.Feedback) *
		decision.SizeFraction
	exposure = capExposure(exposure, s.cfg.MaxExposurePct)

	return types.Proposal{
		Agent:             types.AgentSwing,
		Symbol:            symbol,
		Action:            types.ActionBuy,
		TargetExposurePct: floatPtr(exposure),
		Rationale:         decision.Rationale,
		Confidence:        blended,
		DataQualityScore:  dq,
		Components:        actx.Components(),
	}
}

func (s *Swing) blendedScore(actx Context) (float64, bool) {
	_, blended, coverage := BuildOpinions(actx)
	return blended, coverage > 0
}

package agent

import (
	"context"
	"fmt"
	"strings"

	"arbiter/internal/config"
	"arbiter/internal/types"
)

// Hedge holds the designated hedge instrument when the macro regime is
// stressed and nothing else. It reads only the macro score.
type Hedge struct {
	cfg config.HedgeConfig
}

func NewHedge(cfg config.HedgeConfig) *Hedge {
	return &Hedge{cfg: cfg}
}

func (h *Hedge) ID() types.AgentID { return types.AgentHedge }

// Instrument is the one symbol this agent trades.
func (h *Hedge) Instrument() string {
	return strings.ToUpper(strings.TrimSpace(h.cfg.Instrument))
}

func (h *Hedge) Propose(_ context.Context, symbol string, actx Context) types.Proposal {
	if !strings.EqualFold(symbol, h.cfg.Instrument) {
		return types.SkipProposal(types.AgentHedge, symbol, "not the hedge instrument")
	}
	if actx.Macro == nil {
		return types.SkipProposal(types.AgentHedge, symbol, "macro score missing")
	}
	macro := *actx.Macro

	if actx.Position != nil {
		if !actx.Position.OwnedBy(types.AgentHedge) {
			return types.SkipProposal(types.AgentHedge, symbol,
				fmt.Sprintf("position owned by %s", actx.Position.OwningAgent))
		}
		if macro > h.cfg.ExitMacroAbove {
			return types.Proposal{
				Agent:      types.AgentHedge,
				Symbol:     symbol,
				Action:     types.ActionSell,
				Quantity:   floatPtr(actx.Position.Quantity),
				Rationale:  fmt.Sprintf("macro recovered to %.0f, unwinding hedge", macro),
				Confidence: 100 - macro,
				Components: actx.Components(),
			}
		}
		return types.HoldProposal(types.AgentHedge, symbol,
			fmt.Sprintf("macro %.0f still stressed, hedge stays on", macro))
	}

	if macro < h.cfg.EntryMacroBelow {
		exposure := h.cfg.ExposurePct
		note := "macro stress"
		if macro < h.cfg.DeepMacroBelow {
			exposure = h.cfg.DeepExposurePct
			note = "deep macro stress"
		}
		return types.Proposal{
			Agent:             types.AgentHedge,
			Symbol:            symbol,
			Action:            types.ActionBuy,
			TargetExposurePct: floatPtr(exposure),
			Rationale:         fmt.Sprintf("%s: macro %.0f below %.0f", note, macro, h.cfg.EntryMacroBelow),
			Confidence:        100 - macro,
			Components:        actx.Components(),
		}
	}

	return types.SkipProposal(types.AgentHedge, symbol,
		fmt.Sprintf("macro %.0f not stressed", macro))
}

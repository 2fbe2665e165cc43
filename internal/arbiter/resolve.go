package arbiter

import (
	"fmt"

	"arbiter/internal/types"
)

// dropped is a proposal the resolution discarded, with the audit note
// explaining why.
type dropped struct {
	proposal types.Proposal
	note     string
}

type resolution struct {
	winner  *types.Proposal
	dropped []dropped
}

// resolve reduces one symbol's proposals to at most one executable action.
// Skip and hold proposals fall away first; an active hedge proposal wins
// unconditionally; among the rest, opposing directions cancel and same-action
// conflicts are settled by the priority list; ownership and the
// one-position-per-symbol rule are enforced last so a priority win can still
// be blocked.
func resolve(proposals []types.Proposal, open *types.Position, priority []types.AgentID) resolution {
	var res resolution
	actionable := make([]types.Proposal, 0, len(proposals))
	for _, p := range proposals {
		if p.Actionable() {
			actionable = append(actionable, p)
		}
	}
	if len(actionable) == 0 {
		return res
	}

	winner := actionable[0]
	if len(actionable) > 1 {
		if h := hedgeProposal(actionable); h != nil {
			winner = *h
		} else if opposing(actionable) {
			for _, p := range actionable {
				res.dropped = append(res.dropped, dropped{proposal: p, note: "cancelled: agents disagree on direction"})
			}
			return res
		} else {
			winner = byPriority(actionable, priority)
		}
		for _, p := range actionable {
			if p.Agent != winner.Agent {
				res.dropped = append(res.dropped, dropped{
					proposal: p,
					note:     fmt.Sprintf("yielded to %s by priority", winner.Agent),
				})
			}
		}
	}

	switch winner.Action {
	case types.ActionSell:
		if open == nil {
			res.dropped = append(res.dropped, dropped{proposal: winner, note: "blocked: no open position to sell"})
			return res
		}
		if !open.OwnedBy(winner.Agent) {
			res.dropped = append(res.dropped, dropped{
				proposal: winner,
				note:     fmt.Sprintf("blocked: position owned by %s", open.OwningAgent),
			})
			return res
		}
	case types.ActionBuy:
		if open != nil {
			res.dropped = append(res.dropped, dropped{
				proposal: winner,
				note:     fmt.Sprintf("suppressed: %s already holds this symbol", open.OwningAgent),
			})
			return res
		}
	}

	res.winner = &winner
	return res
}

// hedgeProposal returns the hedge agent's proposal, if present. The hedge is
// the portfolio's defensive layer, so it overrides opportunistic entries no
// matter their direction.
func hedgeProposal(proposals []types.Proposal) *types.Proposal {
	for i := range proposals {
		if proposals[i].Agent == types.AgentHedge {
			return &proposals[i]
		}
	}
	return nil
}

func opposing(proposals []types.Proposal) bool {
	for i := 1; i < len(proposals); i++ {
		if proposals[i].Action.Opposes(proposals[0].Action) {
			return true
		}
	}
	return false
}

// byPriority returns the proposal whose agent appears earliest in the
// priority list; unlisted agents lose to listed ones.
func byPriority(proposals []types.Proposal, priority []types.AgentID) types.Proposal {
	rank := func(agent types.AgentID) int {
		for i, id := range priority {
			if id == agent {
				return i
			}
		}
		return len(priority)
	}
	best := proposals[0]
	for _, p := range proposals[1:] {
		if rank(p.Agent) < rank(best.Agent) {
			best = p
		}
	}
	return best
}

// parsePriority converts the config's string list into agent ids, keeping
// only valid names.
func parsePriority(names []string) []types.AgentID {
	out := make([]types.AgentID, 0, len(names))
	for _, name := range names {
		if id, ok := types.ParseAgentID(name); ok {
			out = append(out, id)
		}
	}
	return out
}

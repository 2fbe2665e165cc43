package weights

import "arbiter/internal/types"

// DefaultFor returns the built-in blend for an agent. Swing leans on
// fundamentals and macro, scalp on technicals and news, hedge reads macro
// alone.
func DefaultFor(agent types.AgentID) types.WeightVector {
	switch agent {
	case types.AgentScalp:
		return types.WeightVector{
			Fundamental: 0.10,
			Technical:   0.30,
			Macro:       0.15,
			News:        0.20,
			Pattern:     0.25,
		}
	case types.AgentHedge:
		return types.WeightVector{Macro: 1.0}
	default:
		return types.WeightVector{
			Fundamental: 0.30,
			Technical:   0.15,
			Macro:       0.25,
			News:        0.10,
			Pattern:     0.20,
		}
	}
}

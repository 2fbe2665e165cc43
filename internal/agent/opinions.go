package agent

import (
	"fmt"
	"math"

	"arbiter/internal/types"
)

// opinion score bands: above buyBand a module argues to buy, below sellBand
// to sell, in between it abstains
const (
	buyBand  = 60.0
	sellBand = 40.0
)

// BuildOpinions converts gathered component scores into module opinions plus
// the blended consensus score and coverage. The blend is the weight-share
// average over present components; coverage is the weight share that had
// data.
func BuildOpinions(c Context) (opinions []types.ModuleOpinion, blended, coverage float64) {
	modules := []types.Module{
		types.ModuleFundamental,
		types.ModuleTechnical,
		types.ModuleMacro,
		types.ModuleNews,
		types.ModulePattern,
	}

	var weighted, present float64
	for _, m := range modules {
		score, ok := c.score(m)
		if !ok {
			continue
		}
		w := c.Weights.Component(m)
		weighted += w * score
		present += w
	}
	if present <= 0 {
		return nil, 50, 0
	}
	blended = weighted / present

	lean := types.ActionBuy
	if blended < 50 {
		lean = types.ActionSell
	}

	for _, m := range modules {
		score, ok := c.score(m)
		if !ok {
			continue
		}
		op := types.ModuleOpinion{
			Module:          m,
			Strength:        math.Min(1, math.Abs(score-50)/50),
			PreferredAction: preferredAction(score),
			Evidence:        []string{fmt.Sprintf("%s score %.0f", m, score)},
		}
		switch {
		case op.PreferredAction == types.ActionHold:
			op.Stance = types.StanceNeutral
		case op.PreferredAction == lean:
			op.Stance = types.StanceSupport
		default:
			op.Stance = types.StanceObject
		}
		opinions = append(opinions, op)
	}
	return opinions, blended, present
}

func preferredAction(score float64) types.Action {
	switch {
	case score >= buyBand:
		return types.ActionBuy
	case score <= sellBand:
		return types.ActionSell
	default:
		return types.ActionHold
	}
}

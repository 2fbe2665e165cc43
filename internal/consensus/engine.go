// Package consensus implements the weighted consensus evaluation: a pure
// function from module opinions plus a blended score and a data-quality
// measure to an approved-or-rejected, tiered, sized decision.
package consensus

import (
	"arbiter/internal/config"
	"arbiter/internal/types"
)

// Decision is the outcome of one consensus evaluation. Tier is 1..3 when
// approved and 0 otherwise; SizeFraction scales the caller's base position.
type Decision struct {
	Action       types.Action `json:"action"`
	Approved     bool         `json:"approved"`
	Tier         int          `json:"tier"`
	SizeFraction float64      `json:"size_fraction"`
	Rationale    string       `json:"rationale"`
	Demoted      bool         `json:"demoted"`
	Vetoed       bool         `json:"vetoed"`
	SizeReduced  bool         `json:"size_reduced"`
}

type council struct {
	claimant   types.ModuleOpinion
	supporters []types.ModuleOpinion
	objectors  []types.ModuleOpinion
	neutral    []types.ModuleOpinion
}

// Evaluate runs the consensus procedure over the given opinions. score is the
// blended 0-100 conviction toward buying; quality is data coverage and
// participant confidence on 0-1. The function has no side effects and is safe
// for concurrent use.
func Evaluate(opinions []types.ModuleOpinion, score, quality float64, cfg config.ConsensusConfig) Decision {
	cn, ok := convene(opinions)
	if !ok {
		return reject(types.ActionHold, "no module raised a directional claim")
	}
	action := cn.claimant.PreferredAction

	if quality < cfg.QualityMinimum {
		return reject(action, rejectQualityRationale(cn, quality, cfg.QualityMinimum))
	}

	// sell conviction mirrors the buy score
	directional := score
	if action == types.ActionSell {
		directional = 100 - score
	}

	tier, size := tierFor(directional, cfg)
	if tier == 0 {
		return reject(action, rejectScoreRationale(cn, action, directional, cfg.TierThreeScore))
	}

	d := Decision{Action: action, Approved: true, Tier: tier, SizeFraction: size}

	// quality permits a maximum tier; decisions above it step down, halving
	// size per step
	maxTier := maxTierForQuality(quality, cfg)
	for d.Tier < maxTier {
		d.Tier++
		d.SizeFraction /= 2
		d.Demoted = true
	}

	if action == types.ActionBuy {
		if veto, by := technicalVeto(cn.objectors, cfg.VetoStrength); veto {
			return Decision{
				Action:    types.ActionHold,
				Vetoed:    true,
				Rationale: vetoRationale(cn, by),
			}
		}
		if reduceSize(cn.objectors, cfg) && d.SizeFraction > cfg.ReducedSizeCap {
			d.SizeFraction = cfg.ReducedSizeCap
			d.SizeReduced = true
		}
	}

	d.Rationale = approveRationale(cn, d, directional, quality)
	return d
}

func reject(action types.Action, rationale string) Decision {
	return Decision{Action: action, Rationale: rationale}
}

// convene picks the strongest directional opinion as claimant and partitions
// the rest by stance. ok is false when every opinion prefers hold.
func convene(opinions []types.ModuleOpinion) (council, bool) {
	var cn council
	claimIdx := -1
	for i, op := range opinions {
		if !op.PreferredAction.Directional() {
			continue
		}
		if claimIdx < 0 || op.Strength > opinions[claimIdx].Strength {
			claimIdx = i
		}
	}
	if claimIdx < 0 {
		return cn, false
	}
	cn.claimant = opinions[claimIdx]
	for i, op := range opinions {
		if i == claimIdx {
			continue
		}
		switch op.Stance {
		case types.StanceSupport:
			cn.supporters = append(cn.supporters, op)
		case types.StanceObject:
			cn.objectors = append(cn.objectors, op)
		default:
			cn.neutral = append(cn.neutral, op)
		}
	}
	return cn, true
}

func tierFor(directional float64, cfg config.ConsensusConfig) (int, float64) {
	switch {
	case directional >= cfg.TierOneScore:
		return 1, 1.0
	case directional >= cfg.TierTwoScore:
		return 2, 0.5
	case directional >= cfg.TierThreeScore:
		return 3, 0.25
	default:
		return 0, 0
	}
}

func maxTierForQuality(quality float64, cfg config.ConsensusConfig) int {
	switch {
	case quality >= cfg.QualityTierOne:
		return 1
	case quality >= cfg.QualityTierTwo:
		return 2
	default:
		return 3
	}
}

// technicalVeto reports whether a technical-class objector clears the veto
// strength, returning the strongest such objector.
func technicalVeto(objectors []types.ModuleOpinion, vetoStrength float64) (bool, types.ModuleOpinion) {
	var strongest types.ModuleOpinion
	found := false
	for _, op := range objectors {
		if !op.Module.TechnicalClass() || op.Strength <= vetoStrength {
			continue
		}
		if !found || op.Strength > strongest.Strength {
			strongest = op
			found = true
		}
	}
	return found, strongest
}

func reduceSize(objectors []types.ModuleOpinion, cfg config.ConsensusConfig) bool {
	sum := 0.0
	for _, op := range objectors {
		sum += op.Strength
		if op.Module.TechnicalClass() &&
			op.Strength > cfg.WeakObjectionFloor && op.Strength <= cfg.VetoStrength {
			return true
		}
	}
	return sum >= cfg.ObjectorSumReduce
}

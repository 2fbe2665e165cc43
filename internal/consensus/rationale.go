package consensus

import (
	"fmt"
	"strings"

	"arbiter/internal/types"
)

// approveRationale names the claimant and supporters, then one risk note per
// objector carrying its leading evidence line.
func approveRationale(cn council, d Decision, directional, quality float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s claims %s (strength %.2f)", cn.claimant.Module, d.Action, cn.claimant.Strength)
	if names := moduleNames(cn.supporters); names != "" {
		fmt.Fprintf(&b, "; backed by %s", names)
	}
	fmt.Fprintf(&b, "; score %.0f quality %.2f -> tier %d size %.2f", directional, quality, d.Tier, d.SizeFraction)
	if d.Demoted {
		b.WriteString(" (demoted on quality)")
	}
	if d.SizeReduced {
		b.WriteString(" (size reduced on objection)")
	}
	for _, op := range cn.objectors {
		fmt.Fprintf(&b, "; risk: %s objects (%.2f)", op.Module, op.Strength)
		if ev := op.FirstEvidence(); ev != "" {
			fmt.Fprintf(&b, " - %s", ev)
		}
	}
	return b.String()
}

func vetoRationale(cn council, by types.ModuleOpinion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s veto: objection strength %.2f against %s claim by %s",
		by.Module, by.Strength, cn.claimant.PreferredAction, cn.claimant.Module)
	if ev := by.FirstEvidence(); ev != "" {
		fmt.Fprintf(&b, " - %s", ev)
	}
	return b.String()
}

func rejectQualityRationale(cn council, quality, minimum float64) string {
	return fmt.Sprintf("%s claim by %s rejected: data quality %.2f below %.2f",
		cn.claimant.PreferredAction, cn.claimant.Module, quality, minimum)
}

func rejectScoreRationale(cn council, action types.Action, directional, floor float64) string {
	return fmt.Sprintf("%s claim by %s rejected: consensus %.0f below tier floor %.0f",
		action, cn.claimant.Module, directional, floor)
}

func moduleNames(ops []types.ModuleOpinion) string {
	if len(ops) == 0 {
		return ""
	}
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, string(op.Module))
	}
	return strings.Join(names, ", ")
}

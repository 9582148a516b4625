package qualityengine

import (
	"sort"

	"github.com/specbench/workbench/pkg/specengine"
)

// Path is one candidate course of action the optimizer scored.
type Path struct {
	Name              string
	ImmediateCost     float64
	ReworkProbability float64
	ReworkCost        float64
	ExpectedCost      float64
}

// PathAnalysis is the optimizer's full comparison of candidate paths,
// sorted ascending by ExpectedCost.
type PathAnalysis struct {
	Paths       []Path
	Recommended string
	CostSpread  float64 // Paths[last].ExpectedCost - Paths[0].ExpectedCost
}

// pathFactors are the inputs the rework-probability formula combines
// for one candidate path.
type pathFactors struct {
	name                 string
	unfilledCriticalGaps int
	maturityShortfall    float64 // 0-100, how far below the phase's overall threshold
	pendingConflicts     int
}

// reworkProbability sums the factor contributions, clamped to
// [0, 0.99].
func reworkProbability(f pathFactors) float64 {
	p := 0.30*float64(f.unfilledCriticalGaps) +
		(f.maturityShortfall/100)*0.8 +
		0.20*float64(f.pendingConflicts)
	if p < 0 {
		p = 0
	}
	if p > 0.99 {
		p = 0.99
	}
	return p
}

// immediateCost looks up a path's tabulated token-estimate cost,
// falling back to the configured default for an unlisted name.
func (e *Engine) immediateCost(name string) float64 {
	if c, ok := e.cfg.PathCosts[name]; ok {
		return c
	}
	return e.cfg.DefaultPathCost
}

// reworkCost looks up the tabulated cost of redoing work abandoned by
// taking this path, keyed distinctly from its immediate cost so the
// two can be tuned independently.
func (e *Engine) reworkCost(name string) float64 {
	if c, ok := e.cfg.PathCosts[name+":rework"]; ok {
		return c
	}
	return e.immediateCost(name) * 2
}

func (e *Engine) scorePath(f pathFactors) Path {
	immediate := e.immediateCost(f.name)
	rework := e.reworkCost(f.name)
	prob := reworkProbability(f)
	return Path{
		Name:              f.name,
		ImmediateCost:     immediate,
		ReworkProbability: prob,
		ReworkCost:        rework,
		ExpectedCost:      immediate + prob*rework,
	}
}

// ComparePaths scores the standard "address" vs "skip" paths for the
// current gap state in ctx against ctx.TargetPhase's gate, used by
// both pre_validate's skip_gaps analysis and the Quality agent's
// compare_paths action.
func (e *Engine) ComparePaths(ctx PreValidateContext) PathAnalysis {
	overall := specengine.Maturity(ctx.Specs)
	coverage := specengine.CategoryCoverage(ctx.Specs)

	gate, hasGate := e.cfg.PhaseGates[ctx.TargetPhase]

	var unfilledCritical int
	var shortfall float64
	if hasGate {
		if overall < gate.OverallThreshold {
			shortfall = gate.OverallThreshold - overall
		}
		for _, cat := range gate.CriticalCategories {
			if coverage[cat] < gate.CategoryThreshold {
				unfilledCritical++
			}
		}
	}

	address := e.scorePath(pathFactors{name: "address"})
	skip := e.scorePath(pathFactors{
		name:                 "skip",
		unfilledCriticalGaps: unfilledCritical,
		maturityShortfall:    shortfall,
		pendingConflicts:     ctx.PendingConflicts,
	})

	paths := []Path{address, skip}
	sort.Slice(paths, func(i, j int) bool { return paths[i].ExpectedCost < paths[j].ExpectedCost })

	return PathAnalysis{
		Paths:       paths,
		Recommended: paths[0].Name,
		CostSpread:  paths[len(paths)-1].ExpectedCost - paths[0].ExpectedCost,
	}
}

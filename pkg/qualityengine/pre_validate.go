// Package qualityengine implements the Quality engine: pre_validate
// gates a major agent action before it runs, post_validate scores its
// result, and the path optimizer is a pure function used by
// pre_validate's skip_gaps and advance_phase checks and by the Quality
// agent's compare_paths action.
package qualityengine

import (
	"github.com/specbench/workbench/pkg/config"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/specengine"
)

// Engine evaluates pre/post validation gates against a project's
// current specifications, pending conflicts, and configured
// thresholds. It is a pure function of its inputs — no I/O, no store
// handle — so callers (the orchestrator, agents) load the data and
// hand it in.
type Engine struct {
	cfg *config.QualityConfig
}

// New constructs an Engine bound to cfg.
func New(cfg *config.QualityConfig) *Engine {
	return &Engine{cfg: cfg}
}

// PreValidateContext is the project-state snapshot pre_validate
// evaluates against.
type PreValidateContext struct {
	Specs            []*models.Specification
	PendingConflicts int
	TargetPhase      string // read by advance_phase and the path optimizer
	TeamSize         int    // carried for callers; no check here reads it
}

// PreValidateResult is the dispatcher's verdict.
type PreValidateResult struct {
	Blocking     bool
	Reason       string
	Issues       []string
	PathAnalysis *PathAnalysis
	Alternatives []string
}

// PreValidate dispatches on action.
func (e *Engine) PreValidate(action string, ctx PreValidateContext) PreValidateResult {
	switch action {
	case "advance_phase":
		return e.preValidateAdvancePhase(ctx)
	case "generate_code":
		return e.preValidateGenerateCode(ctx)
	case "skip_gaps":
		return e.preValidateSkipGaps(ctx)
	default:
		return PreValidateResult{Blocking: false}
	}
}

func (e *Engine) preValidateAdvancePhase(ctx PreValidateContext) PreValidateResult {
	gate, ok := e.cfg.PhaseGates[ctx.TargetPhase]
	if !ok {
		return PreValidateResult{Blocking: false}
	}

	overall := specengine.Maturity(ctx.Specs)
	coverage := specengine.CategoryCoverage(ctx.Specs)

	var issues []string
	if overall < gate.OverallThreshold {
		issues = append(issues, "overall maturity below phase threshold")
	}
	if ctx.PendingConflicts > 0 {
		issues = append(issues, "project has pending conflicts")
	}
	for _, cat := range gate.CriticalCategories {
		if coverage[cat] < gate.CategoryThreshold {
			issues = append(issues, "critical category below threshold: "+cat)
		}
	}

	if len(issues) == 0 {
		return PreValidateResult{Blocking: false}
	}

	// A block always explains itself: the path comparison shows what
	// advancing anyway would be expected to cost versus closing the
	// gaps first.
	analysis := e.ComparePaths(ctx)
	return PreValidateResult{
		Blocking:     true,
		Reason:       "project does not meet the requirements for this phase",
		Issues:       issues,
		PathAnalysis: &analysis,
		Alternatives: []string{analysis.Recommended},
	}
}

// generateCodeMinCategories is the minimum number of the 10 maturity
// categories that must have at least one current specification before
// code generation is allowed.
const generateCodeMinCategories = 7

func (e *Engine) preValidateGenerateCode(ctx PreValidateContext) PreValidateResult {
	coverage := specengine.CategoryCoverage(ctx.Specs)
	covered := 0
	for _, cat := range models.MaturityCategories {
		if coverage[cat] > 0 {
			covered++
		}
	}

	var issues []string
	if covered < generateCodeMinCategories {
		issues = append(issues, "fewer than 7 maturity categories have any current specification")
	}
	if ctx.PendingConflicts > 0 {
		issues = append(issues, "project has pending conflicts")
	}

	if len(issues) == 0 {
		return PreValidateResult{Blocking: false}
	}
	return PreValidateResult{
		Blocking: true,
		Reason:   "project is not ready for code generation",
		Issues:   issues,
	}
}

// skipGapsCostMultiple is how much more expensive "skip" must be than
// "address" before pre_validate blocks the skip.
const skipGapsCostMultiple = 3.0

func (e *Engine) preValidateSkipGaps(ctx PreValidateContext) PreValidateResult {
	analysis := e.ComparePaths(ctx)

	skipCost, addressCost := 0.0, 0.0
	for _, p := range analysis.Paths {
		switch p.Name {
		case "skip":
			skipCost = p.ExpectedCost
		case "address":
			addressCost = p.ExpectedCost
		}
	}

	if addressCost > 0 && skipCost > skipGapsCostMultiple*addressCost {
		return PreValidateResult{
			Blocking:     true,
			Reason:       "skipping the remaining gaps is expected to cost far more in rework than addressing them now",
			PathAnalysis: &analysis,
			Alternatives: []string{"address"},
		}
	}
	return PreValidateResult{Blocking: false, PathAnalysis: &analysis}
}

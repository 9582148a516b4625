package config

// QualityConfig tunes the Quality engine's pre/post validation gates
// and the path-cost optimizer.
type QualityConfig struct {
	// BiasThreshold is validated to lie in (0, 1]. The Quality engine
	// does not read it: PostValidateQuestion approves a question on a
	// fixed quality-score floor of 0.7.
	BiasThreshold float64 `yaml:"bias_threshold"`

	// FlaggedRoles lists professional-role framings the bias detector
	// treats as higher-risk and scores more conservatively.
	FlaggedRoles []string `yaml:"flagged_roles,omitempty"`

	// SolutionBiasPhrases are substrings that mark a generated
	// question as steering the user toward a predetermined answer
	// instead of discovering one.
	SolutionBiasPhrases []string `yaml:"solution_bias_phrases,omitempty"`

	// LeadingPatterns are substrings that mark a generated question as
	// phrased to presuppose its own answer.
	LeadingPatterns []string `yaml:"leading_patterns,omitempty"`

	// CoverageFloor is validated to lie in [0, 1]. pre_validate does
	// not read it: the phase-advance gate is taken from PhaseGates.
	CoverageFloor float64 `yaml:"coverage_floor"`

	// MaxRegenerations bounds the orchestrator's regenerate loop for a
	// single question/answer cycle.
	MaxRegenerations int `yaml:"max_regenerations"`

	// PathCosts holds the optimizer's immediate cost per path name
	// ("address", "skip") and, under "<name>:rework", that path's rework
	// cost. A missing immediate cost falls back to DefaultPathCost, a
	// missing rework cost to twice the path's immediate cost.
	PathCosts       map[string]float64 `yaml:"path_costs,omitempty"`
	DefaultPathCost float64            `yaml:"default_path_cost"`

	// PhaseGates maps a target phase name to the maturity and
	// per-category bar pre_validate enforces before allowing an
	// advance_phase action into it.
	PhaseGates map[string]PhaseGate `yaml:"phase_gates,omitempty"`
}

// PhaseGate is the maturity bar a project must clear before advancing
// into a given phase: an overall maturity floor plus a higher floor on
// a fixed set of critical categories.
type PhaseGate struct {
	OverallThreshold   float64  `yaml:"overall_threshold"`
	CriticalCategories []string `yaml:"critical_categories,omitempty"`
	CategoryThreshold  float64  `yaml:"category_threshold"`
}

// DefaultQualityConfig returns the built-in fallback, used for any
// value the user's YAML leaves zero.
func DefaultQualityConfig() *QualityConfig {
	return &QualityConfig{
		BiasThreshold: 0.6,
		FlaggedRoles:  []string{"ceo", "founder", "investor"},
		SolutionBiasPhrases: []string{
			"should use", "recommend using", "best practice is to use",
			"mongodb", "kubernetes", "aws", "react",
		},
		LeadingPatterns: []string{
			"don't you think", "wouldn't it be better", "surely you want",
		},
		CoverageFloor:    0.5,
		MaxRegenerations: 2,
		DefaultPathCost:  1.0,
		PhaseGates: map[string]PhaseGate{
			"analysis": {
				OverallThreshold:   40,
				CriticalCategories: []string{"goals", "requirements"},
				CategoryThreshold:  60,
			},
			// Design demands full overall maturity, with security,
			// testing, and tech_stack each at or above 80.
			"design": {
				OverallThreshold:   100,
				CriticalCategories: []string{"security", "testing", "tech_stack"},
				CategoryThreshold:  80,
			},
			"implementation": {
				OverallThreshold:   100,
				CriticalCategories: []string{"security", "testing", "tech_stack", "deployment"},
				CategoryThreshold:  90,
			},
		},
	}
}

package qualityengine

import "strings"

// PostValidateResult is the dispatcher's verdict on a completed agent
// action.
type PostValidateResult struct {
	Approved       bool
	QualityScore   float64 // unit interval
	Issues         []string
	Warnings       []string
	ActionRequired string // "regenerate", or "" if none
}

// QuestionResult is the subset of a generate_question result
// post_validate inspects.
type QuestionResult struct {
	Text string
	Role string
}

// ArchitectureResult is the subset of a generate_architecture result
// post_validate inspects.
type ArchitectureResult struct {
	ReferencedRequirementKeys []string
	AllRequirementKeys        []string
	ComponentCount            int
	HasSecuritySection        bool
}

// complexityBudgetPerPerson bounds how many architecture components a
// declared team size can be expected to own.
const complexityBudgetPerPerson = 3

// PostValidateQuestion scores a generated question for solution bias
// and leading phrasing. Each issue costs 0.20 off the
// unit score, each warning costs 0.05; a score below 0.7 requests
// regeneration.
func (e *Engine) PostValidateQuestion(q QuestionResult) PostValidateResult {
	lower := strings.ToLower(q.Text)

	var issues, warnings []string
	for _, phrase := range e.cfg.SolutionBiasPhrases {
		if strings.Contains(lower, phrase) {
			issues = append(issues, "solution bias: contains \""+phrase+"\"")
		}
	}
	for _, pattern := range e.cfg.LeadingPatterns {
		if strings.Contains(lower, pattern) {
			issues = append(issues, "leading phrasing: contains \""+pattern+"\"")
		}
	}
	for _, role := range e.cfg.FlaggedRoles {
		if strings.EqualFold(q.Role, role) {
			warnings = append(warnings, "question framed from a flagged role: "+role)
		}
	}

	score := 1.0 - 0.20*float64(len(issues)) - 0.05*float64(len(warnings))
	if score < 0 {
		score = 0
	}

	result := PostValidateResult{
		QualityScore: score,
		Issues:       issues,
		Warnings:     warnings,
		Approved:     score >= 0.7,
	}
	if !result.Approved {
		result.ActionRequired = "regenerate"
	}
	return result
}

// PostValidateArchitecture checks that a generated architecture
// references every requirement-class specification, stays within the
// team's complexity budget, and includes a security section.
func (e *Engine) PostValidateArchitecture(a ArchitectureResult, teamSize int) PostValidateResult {
	referenced := make(map[string]bool, len(a.ReferencedRequirementKeys))
	for _, k := range a.ReferencedRequirementKeys {
		referenced[k] = true
	}

	var issues []string
	for _, k := range a.AllRequirementKeys {
		if !referenced[k] {
			issues = append(issues, "requirement not referenced by architecture: "+k)
		}
	}

	budget := teamSize * complexityBudgetPerPerson
	if budget > 0 && a.ComponentCount > budget {
		issues = append(issues, "component count exceeds the declared team's complexity budget")
	}
	if !a.HasSecuritySection {
		issues = append(issues, "architecture has no security section")
	}

	if len(issues) == 0 {
		return PostValidateResult{Approved: true, QualityScore: 1.0}
	}
	score := 1.0 - 0.20*float64(len(issues))
	if score < 0 {
		score = 0
	}
	return PostValidateResult{
		Approved:       false,
		QualityScore:   score,
		Issues:         issues,
		ActionRequired: "regenerate",
	}
}

// PostValidateDefault is the fallback verdict for actions the gate
// doesn't specifically score.
func (e *Engine) PostValidateDefault() PostValidateResult {
	return PostValidateResult{Approved: true, QualityScore: 1.0}
}

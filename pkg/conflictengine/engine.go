// Package conflictengine implements pairwise contradiction detection
// for the Specification engine: exact-value disagreement, fixed
// cross-key rules, and LLM-assisted semantic contradiction for
// prose-heavy categories. It is a sub-component of pkg/specengine, not
// a standalone caller-facing service.
package conflictengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specbench/workbench/pkg/llmgateway"
	"github.com/specbench/workbench/pkg/models"
)

// NewCandidate is the proposed value a Detect call evaluates against
// a project's current specifications.
type NewCandidate struct {
	Category   string
	Key        string
	Value      any
	Confidence float64
}

// crossKeyRule pairs two (category, key) locations whose values can
// contradict each other even though they're never the same key. The
// fixed, documented table lives in rules.go.
type crossKeyRule struct {
	categoryA, keyA string
	categoryB, keyB string
	conflictType    models.ConflictType
	semantic        bool // true if the rule needs an LLM judgment, not a direct compare
}

// Detector finds contradictions between a new candidate value and a
// project's current specifications.
type Detector struct {
	gateway   *llmgateway.Gateway
	provider  string
	threshold float64
	crossKeys []crossKeyRule
}

// New constructs a Detector. threshold is the minimum LLM-reported
// confidence for a same-key semantic contradiction to count; the
// semantic cross-key rules fire only above a fixed confidence of 0.7.
func New(gateway *llmgateway.Gateway, provider string, threshold float64) *Detector {
	return &Detector{gateway: gateway, provider: provider, threshold: threshold, crossKeys: defaultCrossKeyRules()}
}

// semanticCategories are the prose-heavy categories routed through the
// LLM contradiction check rather than a direct value compare.
var semanticCategories = map[string]bool{
	"requirements": true,
	"goals":        true,
}

// SpecKey is the ("category\x00key") lookup key used to index a
// project's current specifications for the cross-key table.
func SpecKey(category, key string) string { return category + "\x00" + key }

// Detect evaluates candidate against incumbent (the current spec at
// the same (category, key), already resolved by the caller — nil if
// none exists) and others, every other current specification in the
// project keyed by SpecKey(category, key). The cross-key table is
// consulted in both directions: a rule fires whether the candidate
// arrives at its A side or its B side. It returns the
// conflict type that fired and whether any rule fired at all. When
// more than one rule fires, the highest-severity type wins and only
// one Conflict is ever recorded per (candidate, incumbent) pair —
// callers create at most one Conflict regardless of how many rules
// matched.
func (d *Detector) Detect(ctx context.Context, incumbent *models.Specification, candidate NewCandidate, others map[string]*models.Specification) (models.ConflictType, bool) {
	var fired []models.ConflictType

	if incumbent != nil && incumbent.Category == candidate.Category && incumbent.Key == candidate.Key {
		fired = append(fired, exactKeyConflictType(candidate.Category))
	}

	for _, rule := range d.crossKeys {
		// A rule is pairwise: candidates can arrive at either of its
		// two locations, so the table is consulted in both directions.
		var pairedCategory, pairedKey string
		switch {
		case rule.categoryA == candidate.Category && rule.keyA == candidate.Key:
			pairedCategory, pairedKey = rule.categoryB, rule.keyB
		case rule.categoryB == candidate.Category && rule.keyB == candidate.Key:
			pairedCategory, pairedKey = rule.categoryA, rule.keyA
		default:
			continue
		}
		paired, ok := others[SpecKey(pairedCategory, pairedKey)]
		if !ok || paired == nil {
			continue
		}

		if !rule.semantic {
			if !valuesEqual(paired.Value, candidate.Value) {
				fired = append(fired, rule.conflictType)
			}
			continue
		}

		contradicts, confidence, err := d.semanticContradiction(ctx, fmt.Sprintf("%v", paired.Value), fmt.Sprintf("%v", candidate.Value))
		if err == nil && contradicts && confidence > 0.7 {
			fired = append(fired, rule.conflictType)
		}
	}

	if incumbent != nil && semanticCategories[candidate.Category] {
		contradicts, confidence, err := d.semanticContradiction(ctx, fmt.Sprintf("%v", incumbent.Value), fmt.Sprintf("%v", candidate.Value))
		if err == nil && contradicts && confidence >= d.threshold {
			fired = append(fired, models.ConflictTypeRequirements)
		}
	}

	if len(fired) == 0 {
		return "", false
	}

	best := fired[0]
	for _, t := range fired[1:] {
		if models.SeverityRank(t) < models.SeverityRank(best) {
			best = t
		}
	}
	return best, true
}

// valuesEqual treats two values as equal when they're the same scalar
// after case/whitespace normalization, or stringify identically
// otherwise. Mirrors specengine's no-op equality check so the
// cross-key table and the exact-key path agree on what counts as "no
// real disagreement".
func valuesEqual(a, b any) bool {
	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString && bIsString {
		return strings.EqualFold(strings.TrimSpace(as), strings.TrimSpace(bs))
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// exactKeyConflictType maps a category name to the conflict type an
// exact-key value disagreement in that category produces.
func exactKeyConflictType(category string) models.ConflictType {
	switch category {
	case "tech_stack", "scalability":
		return models.ConflictTypeTechnology
	case "timeline", "team_structure":
		return models.ConflictTypeTimeline
	case "deployment", "monitoring":
		return models.ConflictTypeResources
	default:
		return models.ConflictTypeRequirements
	}
}

type semanticVerdict struct {
	Contradicts bool    `json:"contradicts"`
	Confidence  float64 `json:"confidence"`
}

// semanticContradiction asks the LLM gateway whether two prose values
// contradict each other.
func (d *Detector) semanticContradiction(ctx context.Context, incumbentValue, candidateValue string) (bool, float64, error) {
	result, err := d.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Provider: d.provider,
		SystemPrompt: "Decide whether statement B contradicts statement A about the same project. " +
			`Respond as JSON: {"contradicts": true|false, "confidence": 0.0-1.0}.`,
		Messages: []llmgateway.Message{
			{Role: "user", Content: fmt.Sprintf("A: %s\nB: %s", incumbentValue, candidateValue)},
		},
	})
	if err != nil {
		return false, 0, err
	}

	trimmed := strings.TrimSpace(result.Content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return false, 0, fmt.Errorf("semantic contradiction check: no JSON object in response")
	}

	var verdict semanticVerdict
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &verdict); err != nil {
		return false, 0, fmt.Errorf("decode semantic verdict: %w", err)
	}
	return verdict.Contradicts, verdict.Confidence, nil
}

package conflictengine

import "github.com/specbench/workbench/pkg/models"

// defaultCrossKeyRules is the fixed, documented table of (category,
// key) pairs whose values can contradict each other even when they
// never share a key. The table is small
// and closed by design — adding a rule is a deliberate, reviewed
// change, not something the engine infers at runtime.
func defaultCrossKeyRules() []crossKeyRule {
	return []crossKeyRule{
		{
			categoryA: "tech_stack", keyA: "primary_database",
			categoryB: "tech_stack", keyB: "storage_engine",
			conflictType: models.ConflictTypeTechnology,
		},
		{
			categoryA: "timeline", keyA: "deadline",
			categoryB: "requirements", keyB: "scope",
			conflictType: models.ConflictTypeTimeline,
			semantic:     true,
		},
		{
			categoryA: "team_structure", keyA: "headcount",
			categoryB: "timeline", keyB: "deadline",
			conflictType: models.ConflictTypeResources,
			semantic:     true,
		},
	}
}

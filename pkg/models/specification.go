package models

import "time"

// SpecSource records how a Specification's value was obtained.
type SpecSource string

const (
	SourceUserInput SpecSource = "user_input"
	SourceExtracted SpecSource = "extracted"
	SourceImported  SpecSource = "imported"
	SourceInferred  SpecSource = "inferred"
)

// Specification is a Work-store entity. At most one Specification with
// a given (ProjectID, Category, Key) has IsCurrent=true at any moment.
// History is append-only: superseding a spec flips the predecessor's
// IsCurrent to false and points the successor's Supersedes at it;
// nothing is ever mutated in place.
type Specification struct {
	ID         string
	ProjectID  string
	Category   string
	Key        string
	Value      any // scalar or structured (map[string]any / []any)
	Confidence float64
	Source     SpecSource
	IsCurrent  bool
	Supersedes string // ID of the predecessor spec, "" if none
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ConflictType classifies a Conflict by the category of the disagreement.
// Ordering by severity (highest first) is used to pick a winner when
// multiple detection rules fire for the same candidate.
type ConflictType string

const (
	ConflictTypeTechnology   ConflictType = "technology"
	ConflictTypeRequirements ConflictType = "requirements"
	ConflictTypeTimeline     ConflictType = "timeline"
	ConflictTypeResources    ConflictType = "resources"
)

// conflictTypeSeverity ranks conflict types from most to least severe.
// Lower number = higher severity. Used by the Conflict engine's
// highest-severity-wins rule.
var conflictTypeSeverity = map[ConflictType]int{
	ConflictTypeTechnology:   0,
	ConflictTypeRequirements: 1,
	ConflictTypeTimeline:     2,
	ConflictTypeResources:    3,
}

// SeverityRank returns a conflict type's severity rank; lower is more
// severe. Unknown types rank last.
func SeverityRank(t ConflictType) int {
	if r, ok := conflictTypeSeverity[t]; ok {
		return r
	}
	return len(conflictTypeSeverity)
}

// ConflictResolution is the terminal (or pending) state of a Conflict.
type ConflictResolution string

const (
	ResolutionPending ConflictResolution = "pending"
	ResolutionKeepOld ConflictResolution = "keep_old"
	ResolutionReplace ConflictResolution = "replace"
	ResolutionMerge   ConflictResolution = "merge"
)

// Conflict references one incumbent Specification and carries a
// proposed new value. Pending conflicts block ingestion for the same
// (category, key) and block phase advancement.
type Conflict struct {
	ID            string
	ProjectID     string
	IncumbentID   string // Specification.ID of the current spec
	Category      string
	Key           string
	NewValue      any
	NewConfidence float64
	NewSource     SpecSource
	Type          ConflictType
	Resolution    ConflictResolution
	Resolver      string // actor who resolved it, "" if pending
	CreatedBy     string // actor (or process) that raised it, for merge-authorization checks
	ResolvedAt    *time.Time
	CreatedAt     time.Time
}

// IsTerminal reports whether the conflict has reached an absorbing
// resolution state.
func (c *Conflict) IsTerminal() bool {
	return c.Resolution != ResolutionPending
}

// MaturityCategories is the fixed, closed set of categories scored by
// the Specification engine's maturity function. Changing this list is a
// schema change.
var MaturityCategories = []string{
	"goals",
	"requirements",
	"tech_stack",
	"scalability",
	"security",
	"testing",
	"deployment",
	"monitoring",
	"team_structure",
	"timeline",
}

package models

import "time"

// Phase is a project's position in the fixed discovery lifecycle.
// Advancement is monotone: no regression.
type Phase string

const (
	PhaseDiscovery      Phase = "discovery"
	PhaseAnalysis       Phase = "analysis"
	PhaseDesign         Phase = "design"
	PhaseImplementation Phase = "implementation"
)

// phaseOrder is the fixed advancement sequence. Never reordered at
// runtime — changing it is a schema change, same as the maturity
// category list.
var phaseOrder = []Phase{PhaseDiscovery, PhaseAnalysis, PhaseDesign, PhaseImplementation}

// NextPhase returns the phase after p, and false if p is terminal.
func NextPhase(p Phase) (Phase, bool) {
	for i, ph := range phaseOrder {
		if ph == p && i+1 < len(phaseOrder) {
			return phaseOrder[i+1], true
		}
	}
	return "", false
}

// ProjectStatus is the lifecycle status of a project record.
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

// Project is a Work-store entity owning Sessions, Specifications,
// Conflicts, QualityMetrics, ActivityLog entries, and GeneratedProjects.
type Project struct {
	ID            string
	OwnerID       string
	Name          string
	Description   string
	CurrentPhase  Phase
	MaturityScore float64 // [0,100], a pure function of current specs — never hand-set
	Status        ProjectStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

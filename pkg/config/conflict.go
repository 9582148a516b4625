package config

// ConflictConfig tunes the Conflict engine's detection and resolution
// rules.
type ConflictConfig struct {
	// MergeRequiresEditor resolves the open question of who may choose
	// the "merge" resolution: when true, only the conflict's creator, the
	// project's owner, or a user holding models.ShareRoleEditor on it may
	// merge; when false, no merge-specific check is applied. Decided
	// narrow (true) — see DESIGN.md.
	MergeRequiresEditor bool `yaml:"merge_requires_editor"`

	// SemanticSimilarityThreshold is the minimum pairwise score (from
	// the semantic-path scorer) at which two specification values are
	// treated as contradictory rather than merely different.
	SemanticSimilarityThreshold float64 `yaml:"semantic_similarity_threshold"`
}

// DefaultConflictConfig returns the built-in fallback.
func DefaultConflictConfig() *ConflictConfig {
	return &ConflictConfig{
		MergeRequiresEditor:         true,
		SemanticSimilarityThreshold: 0.75,
	}
}

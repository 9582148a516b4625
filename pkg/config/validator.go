package config

import (
	"fmt"
	"os"
)

// Validator validates loaded configuration comprehensively, failing
// fast at the first error.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll validates in dependency order: LLM providers, then the
// engine configs that reference them.
func (v *Validator) ValidateAll() error {
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	if err := v.validateQuality(); err != nil {
		return fmt.Errorf("quality validation failed: %w", err)
	}
	if err := v.validateConflict(); err != nil {
		return fmt.Errorf("conflict validation failed: %w", err)
	}
	if err := v.validateNLU(); err != nil {
		return fmt.Errorf("nlu validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	for name, p := range v.cfg.LLMProviderRegistry.GetAll() {
		if !p.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", p.Type))
		}
		if p.Model == "" {
			return NewValidationError("llm_provider", name, "model", fmt.Errorf("model required"))
		}
		if p.Type != LLMProviderTypeStub && p.APIKeyEnv != "" {
			if os.Getenv(p.APIKeyEnv) == "" {
				return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("environment variable %s is not set", p.APIKeyEnv))
			}
		}
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d.LLMProvider != "" && !v.cfg.LLMProviderRegistry.Has(d.LLMProvider) {
		return NewValidationError("defaults", "", "llm_provider", fmt.Errorf("provider '%s' not found", d.LLMProvider))
	}
	return nil
}

func (v *Validator) validateQuality() error {
	q := v.cfg.Quality
	if q.BiasThreshold <= 0 || q.BiasThreshold > 1 {
		return NewValidationError("quality", "", "bias_threshold", fmt.Errorf("must be in (0, 1], got %v", q.BiasThreshold))
	}
	if q.CoverageFloor < 0 || q.CoverageFloor > 1 {
		return NewValidationError("quality", "", "coverage_floor", fmt.Errorf("must be in [0, 1], got %v", q.CoverageFloor))
	}
	if q.MaxRegenerations < 0 {
		return NewValidationError("quality", "", "max_regenerations", fmt.Errorf("must be non-negative, got %d", q.MaxRegenerations))
	}
	if q.DefaultPathCost <= 0 {
		return NewValidationError("quality", "", "default_path_cost", fmt.Errorf("must be positive, got %v", q.DefaultPathCost))
	}
	for cat, cost := range q.PathCosts {
		if cost <= 0 {
			return NewValidationError("quality", "", fmt.Sprintf("path_costs[%s]", cat), fmt.Errorf("must be positive, got %v", cost))
		}
	}
	return nil
}

func (v *Validator) validateConflict() error {
	c := v.cfg.Conflict
	if c.SemanticSimilarityThreshold < 0 || c.SemanticSimilarityThreshold > 1 {
		return NewValidationError("conflict", "", "semantic_similarity_threshold", fmt.Errorf("must be in [0, 1], got %v", c.SemanticSimilarityThreshold))
	}
	return nil
}

func (v *Validator) validateNLU() error {
	n := v.cfg.NLU
	if n.MemoryWindow < 1 {
		return NewValidationError("nlu", "", "memory_window", fmt.Errorf("must be at least 1, got %d", n.MemoryWindow))
	}
	if n.IntentLLMProvider != "" && !v.cfg.LLMProviderRegistry.Has(n.IntentLLMProvider) {
		return NewValidationError("nlu", "", "intent_llm_provider", fmt.Errorf("provider '%s' not found", n.IntentLLMProvider))
	}
	return nil
}

package config

import "fmt"

// LLMProviderType identifies the wire protocol an HTTPProvider speaks.
type LLMProviderType string

const (
	LLMProviderTypeOpenAI    LLMProviderType = "openai"
	LLMProviderTypeAnthropic LLMProviderType = "anthropic"
	LLMProviderTypeStub      LLMProviderType = "stub"
)

// IsValid reports whether t is a recognized provider type.
func (t LLMProviderType) IsValid() bool {
	switch t {
	case LLMProviderTypeOpenAI, LLMProviderTypeAnthropic, LLMProviderTypeStub:
		return true
	}
	return false
}

// LLMProviderConfig configures one named LLM backend.
type LLMProviderConfig struct {
	Type        LLMProviderType `yaml:"type" validate:"required"`
	Model       string          `yaml:"model" validate:"required"`
	BaseURL     string          `yaml:"base_url,omitempty"`
	APIKeyEnv   string          `yaml:"api_key_env,omitempty"`
	MaxTokens   int             `yaml:"max_tokens,omitempty"`
	Temperature float64         `yaml:"temperature,omitempty"`
	Timeout     int             `yaml:"timeout_seconds,omitempty"`
}

// LLMProviderRegistry is an immutable, name-keyed lookup of provider
// configurations built once during Initialize.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
}

// NewLLMProviderRegistry constructs a registry from a merged provider map.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	return &LLMProviderRegistry{providers: providers}
}

// Get returns the named provider config, or ErrLLMProviderNotFound.
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return p, nil
}

// Has reports whether name is a registered provider.
func (r *LLMProviderRegistry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// GetAll returns every registered provider, keyed by name.
func (r *LLMProviderRegistry) GetAll() map[string]*LLMProviderConfig {
	return r.providers
}

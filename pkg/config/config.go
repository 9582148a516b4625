// Package config loads and validates the YAML-driven configuration
// used across the engines, agents, and gateways. Initialize
// is the single entry point: load, merge built-in defaults with
// user-provided YAML, validate, and return a ready-to-use Config.
package config

// Config is the umbrella configuration object returned by Initialize
// and threaded through the orchestrator, engines, and gateway.
type Config struct {
	configDir string

	Defaults            *Defaults
	LLMProviderRegistry *LLMProviderRegistry
	Quality             *QualityConfig
	Conflict            *ConflictConfig
	NLU                 *NLUConfig
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ConfigStats summarizes what was loaded, for the startup log line.
type ConfigStats struct {
	LLMProviders int
}

// Stats returns configuration statistics for logging.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders: len(c.LLMProviderRegistry.GetAll()),
	}
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}

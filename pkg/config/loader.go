package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// specbenchYAMLConfig mirrors the top-level specbench.yaml file.
type specbenchYAMLConfig struct {
	Defaults *Defaults       `yaml:"defaults"`
	Quality  *QualityConfig  `yaml:"quality"`
	Conflict *ConflictConfig `yaml:"conflict"`
	NLU      *NLUConfig      `yaml:"nlu"`
}

// llmProvidersYAMLConfig mirrors the llm-providers.yaml file.
type llmProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// Steps: load YAML from configDir, expand env vars, merge built-in
// defaults under user overrides, validate, return.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.InfoContext(ctx, "initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.InfoContext(ctx, "configuration initialized", "llm_providers", stats.LLMProviders)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	main, err := loader.loadSpecbenchYAML()
	if err != nil {
		return nil, NewLoadError("specbench.yaml", err)
	}

	providers, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	mergedProviders := mergeLLMProviders(builtinLLMProviders(), providers)
	providerRegistry := NewLLMProviderRegistry(mergedProviders)

	quality := DefaultQualityConfig()
	if main.Quality != nil {
		if err := mergo.Merge(quality, main.Quality, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge quality config: %w", err)
		}
	}

	conflict := DefaultConflictConfig()
	if main.Conflict != nil {
		if err := mergo.Merge(conflict, main.Conflict, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge conflict config: %w", err)
		}
	}

	nlu := DefaultNLUConfig()
	if main.NLU != nil {
		if err := mergo.Merge(nlu, main.NLU, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge nlu config: %w", err)
		}
	}

	defaults := main.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.LLMProvider == "" {
		defaults.LLMProvider = "stub"
	}

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		LLMProviderRegistry: providerRegistry,
		Quality:             quality,
		Conflict:            conflict,
		NLU:                 nlu,
	}, nil
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadSpecbenchYAML() (*specbenchYAMLConfig, error) {
	var cfg specbenchYAMLConfig
	if err := l.loadYAML("specbench.yaml", &cfg); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return &specbenchYAMLConfig{}, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var cfg llmProvidersYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &cfg); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return cfg.LLMProviders, nil
		}
		return nil, err
	}
	return cfg.LLMProviders, nil
}

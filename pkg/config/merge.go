package config

// mergeLLMProviders merges built-in and user-defined LLM provider
// configurations. User-defined providers override built-in ones with
// the same name.
func mergeLLMProviders(builtin, user map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig, len(builtin)+len(user))

	for name, p := range builtin {
		pCopy := p
		result[name] = &pCopy
	}
	for name, p := range user {
		pCopy := p
		result[name] = &pCopy
	}

	return result
}

// builtinLLMProviders is the zero-config fallback: a single stub
// provider so the system boots and answers deterministically without
// any external credentials (used by tests and first-run environments).
func builtinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"stub": {
			Type:        LLMProviderTypeStub,
			Model:       "stub-v1",
			MaxTokens:   2048,
			Temperature: 0.2,
		},
	}
}

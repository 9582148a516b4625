// Package llmgateway is the sole path through which every other
// package calls an LLM. It wraps a pluggable Provider with
// retry/backoff so callers — the NLU service, the Specification and
// Conflict engines, and the pkg/agents/* adapters — never talk to a
// wire protocol directly.
package llmgateway

import "context"

// CompletionRequest is the provider-agnostic shape of an LLM call.
type CompletionRequest struct {
	Provider     string
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
}

// Message is one turn in a completion request.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// CompletionResult is the provider-agnostic shape of an LLM response.
type CompletionResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is the interface a concrete LLM backend implements. The
// Go-side shape stays transport-agnostic on purpose: HTTPProvider
// speaks net/http to a real endpoint, StubProvider answers
// deterministically for tests, and either can be swapped in behind
// Gateway without touching a caller.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

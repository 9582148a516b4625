package llmgateway

import (
	"context"
	"fmt"
	"strings"
)

// StubProvider answers deterministically without calling out to any
// real LLM. It is the builtin "stub" provider (config.builtinLLMProviders)
// and the provider the Specification engine's unit tests are written
// against.
type StubProvider struct{}

// NewStubProvider constructs a StubProvider.
func NewStubProvider() *StubProvider { return &StubProvider{} }

// Complete returns a response derived mechanically from the last
// message, so tests can assert on it without depending on real
// model output.
func (s *StubProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResult, error) {
	last := ""
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	content := fmt.Sprintf("stub-response(%d chars): %s", len(last), strings.TrimSpace(last))
	return CompletionResult{
		Content:      content,
		InputTokens:  len(last) / 4,
		OutputTokens: len(content) / 4,
	}, nil
}

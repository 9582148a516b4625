package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/config"
)

// HTTPProvider calls a real chat-completion endpoint over net/http.
// It is configured from a single config.LLMProviderConfig and never
// reaches outside the one provider it was built for.
type HTTPProvider struct {
	cfg    *config.LLMProviderConfig
	apiKey string
	client *http.Client
}

// NewHTTPProvider constructs an HTTPProvider for cfg. apiKey is the
// value of the environment variable named by cfg.APIKeyEnv, resolved
// by the caller at startup.
func NewHTTPProvider(cfg *config.LLMProviderConfig, apiKey string) *HTTPProvider {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPProvider{
		cfg:    cfg,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type httpCompletionPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type httpCompletionResponse struct {
	Content string `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete implements Provider by POSTing a chat-completion request to
// cfg.BaseURL and mapping transport/HTTP failures onto the apperrors
// Llm* taxonomy so Gateway can decide whether to retry.
func (p *HTTPProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	messages := req.Messages
	if req.SystemPrompt != "" {
		messages = append([]Message{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	body, err := json.Marshal(httpCompletionPayload{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return CompletionResult{}, newProviderError(apperrors.ErrLlmInvalidResp, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, newProviderError(apperrors.ErrLlmProviderError, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return CompletionResult{}, newProviderError(apperrors.ErrLlmTimeout, err.Error())
		}
		return CompletionResult{}, newProviderError(apperrors.ErrLlmUnavailable, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResult{}, newProviderError(apperrors.ErrLlmInvalidResp, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return CompletionResult{}, newProviderError(apperrors.ErrLlmRateLimited, string(respBody))
	case resp.StatusCode >= 500:
		return CompletionResult{}, newProviderError(apperrors.ErrLlmUnavailable, fmt.Sprintf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return CompletionResult{}, newProviderError(apperrors.ErrLlmProviderError, fmt.Sprintf("status %d: %s", resp.StatusCode, respBody))
	}

	var parsed httpCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return CompletionResult{}, newProviderError(apperrors.ErrLlmInvalidResp, err.Error())
	}

	return CompletionResult{
		Content:      parsed.Content,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}

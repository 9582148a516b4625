package llmgateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Gateway wraps a Provider with bounded exponential-backoff retry.
// Every engine and agent in this repo calls the LLM exclusively
// through a Gateway, never a Provider directly.
type Gateway struct {
	provider   Provider
	maxElapsed time.Duration
	log        *slog.Logger
}

// New constructs a Gateway around provider. maxElapsed bounds the
// total time spent retrying a single Complete call; zero uses a
// 30-second default.
func New(provider Provider, maxElapsed time.Duration) *Gateway {
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &Gateway{provider: provider, maxElapsed: maxElapsed, log: slog.With("component", "llmgateway")}
}

// Complete calls the underlying provider, retrying rate-limit and
// transient-unavailable responses with exponential backoff. Any other
// error — timeout, invalid response, hard provider error — is returned
// to the caller on first occurrence without retry.
func (g *Gateway) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(g.maxElapsed)), ctx)

	var result CompletionResult
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		result, err = g.provider.Complete(ctx, req)
		if err != nil && retryable(err) {
			g.log.WarnContext(ctx, "llm call failed, retrying", "attempt", attempt, "error", err)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return CompletionResult{}, err
	}
	return result, nil
}

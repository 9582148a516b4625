package llmgateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specbench/workbench/pkg/apperrors"
)

// scriptedProvider returns errs[call] until it runs out, then result.
type scriptedProvider struct {
	errs   []error
	result CompletionResult
	calls  int
}

func (p *scriptedProvider) Complete(_ context.Context, _ CompletionRequest) (CompletionResult, error) {
	idx := p.calls
	p.calls++
	if idx < len(p.errs) {
		return CompletionResult{}, p.errs[idx]
	}
	return p.result, nil
}

func TestComplete_RetriesRateLimitedThenSucceeds(t *testing.T) {
	p := &scriptedProvider{
		errs:   []error{newProviderError(apperrors.ErrLlmRateLimited, "slow down"), newProviderError(apperrors.ErrLlmRateLimited, "slow down")},
		result: CompletionResult{Content: "ok"},
	}
	gw := New(p, 10*time.Second)

	result, err := gw.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)
	assert.Equal(t, 3, p.calls)
}

func TestComplete_RetriesUnavailableThenSucceeds(t *testing.T) {
	p := &scriptedProvider{
		errs:   []error{newProviderError(apperrors.ErrLlmUnavailable, "backend down")},
		result: CompletionResult{Content: "ok"},
	}
	gw := New(p, 10*time.Second)

	result, err := gw.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)
	assert.Equal(t, 2, p.calls)
}

func TestComplete_NeverRetriesProviderError(t *testing.T) {
	p := &scriptedProvider{errs: []error{newProviderError(apperrors.ErrLlmProviderError, "bad request")}}
	gw := New(p, 10*time.Second)

	_, err := gw.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrLlmProviderError)
	assert.Equal(t, 1, p.calls)
}

func TestComplete_NeverRetriesInvalidResponse(t *testing.T) {
	p := &scriptedProvider{errs: []error{newProviderError(apperrors.ErrLlmInvalidResp, "schema mismatch")}}
	gw := New(p, 10*time.Second)

	_, err := gw.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrLlmInvalidResp)
	assert.Equal(t, 1, p.calls)
}

func TestComplete_NeverRetriesTimeout(t *testing.T) {
	p := &scriptedProvider{errs: []error{newProviderError(apperrors.ErrLlmTimeout, "context deadline")}}
	gw := New(p, 10*time.Second)

	_, err := gw.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrLlmTimeout)
	assert.Equal(t, 1, p.calls)
}

func TestComplete_GivesUpOncePastMaxElapsed(t *testing.T) {
	p := &scriptedProvider{errs: []error{
		newProviderError(apperrors.ErrLlmUnavailable, "1"),
		newProviderError(apperrors.ErrLlmUnavailable, "2"),
		newProviderError(apperrors.ErrLlmUnavailable, "3"),
		newProviderError(apperrors.ErrLlmUnavailable, "4"),
		newProviderError(apperrors.ErrLlmUnavailable, "5"),
	}}
	gw := New(p, 1*time.Millisecond)

	_, err := gw.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, apperrors.ErrLlmUnavailable)
	assert.LessOrEqual(t, p.calls, len(p.errs))
}

func TestComplete_ZeroMaxElapsedDefaultsToThirtySeconds(t *testing.T) {
	p := &scriptedProvider{result: CompletionResult{Content: "ok"}}
	gw := New(p, 0)
	assert.Equal(t, 30*time.Second, gw.maxElapsed)

	result, err := gw.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)
}

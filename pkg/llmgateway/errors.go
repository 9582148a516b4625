package llmgateway

import (
	"errors"
	"fmt"

	"github.com/specbench/workbench/pkg/apperrors"
)

// ProviderError wraps a provider failure with the sentinel apperrors
// kind that determines whether Gateway retries it.
type ProviderError struct {
	Kind    error // one of apperrors.ErrLlm*
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Kind }

func newProviderError(kind error, message string) error {
	return &ProviderError{Kind: kind, Message: message}
}

// retryable reports whether Gateway should retry err: only
// rate-limit and transient-unavailable responses are retried;
// timeouts, invalid responses, and hard provider errors propagate
// immediately.
func retryable(err error) bool {
	return errors.Is(err, apperrors.ErrLlmRateLimited) || errors.Is(err, apperrors.ErrLlmUnavailable)
}

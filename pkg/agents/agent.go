// Package agents holds the thin agent adapters the orchestrator
// drives: each validates its input, loads the bounded data its action
// needs, delegates to an engine or the LLM gateway, persists the
// outcome, and returns a structured Result. None of them contain
// business logic beyond that wiring — the engines own the rules.
package agents

import (
	"context"
	"fmt"

	"github.com/specbench/workbench/pkg/apperrors"
)

// Agent is the common entry point every domain agent implements.
type Agent interface {
	Execute(ctx context.Context, action string, payload map[string]any) (*Result, error)
}

// Result is what every agent action returns to its caller (the
// orchestrator, or a caller-facing handler for non-gated actions).
type Result struct {
	Success bool
	Data    map[string]any
}

// unsupportedAction is the uniform error an agent returns for an
// action name outside its fixed set.
func unsupportedAction(agentID, action string) error {
	return fmt.Errorf("agent %q does not support action %q", agentID, action)
}

// stringParam reads a required string field out of payload. An absent
// field is a MissingParameter, so intent-classified calls that arrive
// without everything they need surface the declared failure mode
// rather than an opaque error.
func stringParam(payload map[string]any, key string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return "", apperrors.NewMissingParameter(key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", apperrors.NewValidationError(key, "must be a non-empty string")
	}
	return s, nil
}

package agents

import (
	"context"
	"fmt"

	"github.com/specbench/workbench/pkg/specengine"
	"github.com/specbench/workbench/pkg/store/workstore"
)

// Context runs the Specification engine's extract+ingest pair against
// one user utterance.
type Context struct {
	store  *workstore.Client
	engine *specengine.Engine
}

// NewContext constructs a Context agent.
func NewContext(store *workstore.Client, engine *specengine.Engine) *Context {
	return &Context{store: store, engine: engine}
}

func (a *Context) Execute(ctx context.Context, action string, payload map[string]any) (*Result, error) {
	switch action {
	case "extract_specifications":
		return a.extractSpecifications(ctx, payload)
	default:
		return nil, unsupportedAction("context", action)
	}
}

func (a *Context) extractSpecifications(ctx context.Context, payload map[string]any) (*Result, error) {
	sessionID, err := stringParam(payload, "session_id")
	if err != nil {
		return nil, err
	}
	utterance, err := stringParam(payload, "utterance")
	if err != nil {
		return nil, err
	}

	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	candidates, err := a.engine.Extract(ctx, session.ProjectID, utterance)
	if err != nil {
		return nil, fmt.Errorf("extract_specifications: %w", err)
	}

	inserted, conflicts, err := a.engine.Ingest(ctx, session.ProjectID, candidates)
	if err != nil {
		return nil, err
	}

	score, err := a.refreshMaturity(ctx, session.ProjectID)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success: true,
		Data: map[string]any{
			"inserted":  inserted,
			"conflicts": conflicts,
			"maturity":  score,
		},
	}, nil
}

// refreshMaturity recomputes and persists the project's maturity score
// from its current specifications. The stored score is always derived,
// never hand-set, so every ingestion refreshes it.
func (a *Context) refreshMaturity(ctx context.Context, projectID string) (float64, error) {
	specs, err := a.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("extract_specifications: reload specs: %w", err)
	}
	score := specengine.Maturity(specs)
	if err := a.store.UpdateMaturityScore(ctx, projectID, score); err != nil {
		return 0, fmt.Errorf("extract_specifications: refresh maturity: %w", err)
	}
	return score, nil
}

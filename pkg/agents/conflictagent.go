package agents

import (
	"context"
	"fmt"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/config"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/specengine"
	"github.com/specbench/workbench/pkg/store/workstore"
)

// Conflict lists, details, and resolves a project's conflicts by
// delegating to the Specification engine.
type Conflict struct {
	store  *workstore.Client
	engine *specengine.Engine
	cfg    *config.ConflictConfig
}

// NewConflict constructs a Conflict agent.
func NewConflict(store *workstore.Client, engine *specengine.Engine, cfg *config.ConflictConfig) *Conflict {
	return &Conflict{store: store, engine: engine, cfg: cfg}
}

func (a *Conflict) Execute(ctx context.Context, action string, payload map[string]any) (*Result, error) {
	switch action {
	case "list":
		return a.list(ctx, payload)
	case "detail":
		return a.detail(ctx, payload)
	case "resolve":
		return a.resolve(ctx, payload)
	default:
		return nil, unsupportedAction("conflict", action)
	}
}

func (a *Conflict) list(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	conflicts, err := a.store.ListPendingConflicts(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{"conflicts": conflicts}}, nil
}

func (a *Conflict) detail(ctx context.Context, payload map[string]any) (*Result, error) {
	conflictID, err := stringParam(payload, "conflict_id")
	if err != nil {
		return nil, err
	}
	conflict, err := a.store.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Data: map[string]any{"conflict": conflict}}, nil
}

func (a *Conflict) resolve(ctx context.Context, payload map[string]any) (*Result, error) {
	conflictID, err := stringParam(payload, "conflict_id")
	if err != nil {
		return nil, err
	}
	resolutionStr, err := stringParam(payload, "resolution")
	if err != nil {
		return nil, err
	}
	actor, err := stringParam(payload, "actor")
	if err != nil {
		return nil, err
	}
	merged := payload["merged_value"]

	resolution := models.ConflictResolution(resolutionStr)
	if resolution == models.ResolutionMerge {
		if merged == nil {
			return nil, apperrors.ErrInvalidResolution
		}
		if err := a.authorizeMerge(ctx, conflictID, actor); err != nil {
			return nil, err
		}
	}

	conflict, err := a.store.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, err
	}

	if err := a.engine.Resolve(ctx, conflictID, resolution, actor, merged); err != nil {
		return nil, err
	}

	// replace/merge change the current-spec set, so the stored maturity
	// score has to be rederived.
	specs, err := a.store.ListCurrentSpecifications(ctx, conflict.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("resolve: reload specs: %w", err)
	}
	score := specengine.Maturity(specs)
	if err := a.store.UpdateMaturityScore(ctx, conflict.ProjectID, score); err != nil {
		return nil, fmt.Errorf("resolve: refresh maturity: %w", err)
	}

	return &Result{Success: true, Data: map[string]any{"maturity": score}}, nil
}

// authorizeMerge enforces the narrower of the two plausible merge
// rules: only the conflict's creator, its project's owner, or an editor
// of its project may supply a merged value
// (config.ConflictConfig.MergeRequiresEditor).
func (a *Conflict) authorizeMerge(ctx context.Context, conflictID, actor string) error {
	if !a.cfg.MergeRequiresEditor {
		return nil
	}
	conflict, err := a.store.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}
	if conflict.CreatedBy == actor {
		return nil
	}

	project, err := a.store.GetProject(ctx, conflict.ProjectID)
	if err != nil {
		return err
	}
	if project.OwnerID == actor {
		return nil
	}
	role, ok, err := a.store.GetShareRole(ctx, conflict.ProjectID, actor)
	if err != nil {
		return err
	}
	if ok && role == models.ShareRoleEditor {
		return nil
	}
	return apperrors.ErrPermissionDenied
}

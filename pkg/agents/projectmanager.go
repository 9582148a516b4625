package agents

import (
	"context"
	"fmt"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/specengine"
	"github.com/specbench/workbench/pkg/store/workstore"
)

// ProjectManager implements create/read/update/delete/advance_phase.
// advance_phase is the canonical quality-gated operation
// the orchestrator intercepts with pre_validate/post_validate; the
// other actions are unmajor housekeeping.
type ProjectManager struct {
	store *workstore.Client
}

// NewProjectManager constructs a ProjectManager bound to store.
func NewProjectManager(store *workstore.Client) *ProjectManager {
	return &ProjectManager{store: store}
}

func (a *ProjectManager) Execute(ctx context.Context, action string, payload map[string]any) (*Result, error) {
	switch action {
	case "create":
		return a.create(ctx, payload)
	case "read":
		return a.read(ctx, payload)
	case "update":
		return a.update(ctx, payload)
	case "delete":
		return a.delete(ctx, payload)
	case "advance_phase":
		return a.advancePhase(ctx, payload)
	default:
		return nil, unsupportedAction("project_manager", action)
	}
}

func (a *ProjectManager) create(ctx context.Context, payload map[string]any) (*Result, error) {
	ownerID, err := stringParam(payload, "owner_id")
	if err != nil {
		return nil, err
	}
	name, err := stringParam(payload, "name")
	if err != nil {
		return nil, err
	}
	description, _ := payload["description"].(string)

	project, err := a.store.CreateProject(ctx, ownerID, name, description)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{"project": project}}, nil
}

func (a *ProjectManager) read(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	project, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Data: map[string]any{"project": project}}, nil
}

func (a *ProjectManager) update(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	specs, err := a.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("update project: recompute maturity: %w", err)
	}
	score := specengine.Maturity(specs)
	if err := a.store.UpdateMaturityScore(ctx, projectID, score); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{"maturity_score": score}}, nil
}

// delete archives a project rather than removing its history: a
// project's sessions, specifications, and activity log outlive it.
func (a *ProjectManager) delete(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	if err := a.store.ArchiveProject(ctx, projectID); err != nil {
		return nil, fmt.Errorf("delete project: %w", err)
	}
	return &Result{Success: true}, nil
}

// advancePhase performs the state transition itself. The quality gate
// that allows or blocks it lives entirely in the orchestrator, which
// calls qualityengine.PreValidate before ever invoking this action
//; by the time this method runs, the move is authorized.
func (a *ProjectManager) advancePhase(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	project, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	next, ok := models.NextPhase(project.CurrentPhase)
	if !ok {
		return nil, apperrors.NewValidationError("project_id", "project is already in its terminal phase")
	}
	if err := a.store.AdvancePhase(ctx, projectID, next); err != nil {
		return nil, fmt.Errorf("advance phase: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{"phase": next}}, nil
}

package agents

import (
	"context"
	"fmt"

	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/qualityengine"
	"github.com/specbench/workbench/pkg/specengine"
	"github.com/specbench/workbench/pkg/store/workstore"
)

// Quality runs the Quality engine's scoring operations on demand and
// records the resulting metrics.
type Quality struct {
	store  *workstore.Client
	engine *qualityengine.Engine
}

// NewQuality constructs a Quality agent.
func NewQuality(store *workstore.Client, engine *qualityengine.Engine) *Quality {
	return &Quality{store: store, engine: engine}
}

func (a *Quality) Execute(ctx context.Context, action string, payload map[string]any) (*Result, error) {
	switch action {
	case "analyze_question":
		return a.analyzeQuestion(ctx, payload)
	case "analyze_coverage":
		return a.analyzeCoverage(ctx, payload)
	case "compare_paths":
		return a.comparePaths(ctx, payload)
	case "store_metrics":
		return a.storeMetrics(ctx, payload)
	default:
		return nil, unsupportedAction("quality", action)
	}
}

func (a *Quality) analyzeQuestion(ctx context.Context, payload map[string]any) (*Result, error) {
	text, err := stringParam(payload, "text")
	if err != nil {
		return nil, err
	}
	role, _ := payload["role"].(string)

	verdict := a.engine.PostValidateQuestion(qualityengine.QuestionResult{Text: text, Role: role})
	return &Result{Success: true, Data: map[string]any{"verdict": verdict}}, nil
}

func (a *Quality) analyzeCoverage(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	specs, err := a.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("analyze_coverage: %w", err)
	}
	return &Result{
		Success: true,
		Data: map[string]any{
			"maturity":          specengine.Maturity(specs),
			"category_coverage": specengine.CategoryCoverage(specs),
		},
	}, nil
}

func (a *Quality) comparePaths(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	targetPhase, _ := payload["target_phase"].(string)
	teamSize, _ := payload["team_size"].(int)

	specs, err := a.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("compare_paths: %w", err)
	}
	pending, err := a.store.ListPendingConflicts(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("compare_paths: %w", err)
	}

	analysis := a.engine.ComparePaths(qualityengine.PreValidateContext{
		Specs:            specs,
		PendingConflicts: len(pending),
		TargetPhase:      targetPhase,
		TeamSize:         teamSize,
	})
	return &Result{Success: true, Data: map[string]any{"path_analysis": analysis}}, nil
}

func (a *Quality) storeMetrics(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	bias, _ := payload["bias"].(float64)
	coverage, _ := payload["coverage"].(float64)
	complexity, _ := payload["complexity"].(float64)

	metric := &models.QualityMetric{ProjectID: projectID, Bias: bias, Coverage: coverage, Complexity: complexity}
	if err := a.store.RecordQualityMetric(ctx, metric); err != nil {
		return nil, fmt.Errorf("store_metrics: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{"metric": metric}}, nil
}

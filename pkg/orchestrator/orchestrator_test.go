package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specbench/workbench/pkg/agents"
	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/config"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/qualityengine"
)

type fakeStore struct {
	specs    []*models.Specification
	pending  []*models.Conflict
	sessions map[string]*models.Session
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperrors.ErrUnknownSession
	}
	return s, nil
}

func (f *fakeStore) GetProject(_ context.Context, id string) (*models.Project, error) {
	return &models.Project{ID: id, CurrentPhase: models.PhaseAnalysis}, nil
}

func (f *fakeStore) ListCurrentSpecifications(_ context.Context, _ string) ([]*models.Specification, error) {
	return f.specs, nil
}

func (f *fakeStore) ListPendingConflicts(_ context.Context, _ string) ([]*models.Conflict, error) {
	return f.pending, nil
}

// recordingAgent tracks whether Execute was ever called, so tests can
// assert a blocked pre_validate never reaches the agent.
type recordingAgent struct {
	executed int
	fn       func(action string, payload map[string]any) (*agents.Result, error)
}

func (a *recordingAgent) Execute(_ context.Context, action string, payload map[string]any) (*agents.Result, error) {
	a.executed++
	return a.fn(action, payload)
}

func newOrchestrator(store Store, agent agents.Agent, maxRegen int) *Orchestrator {
	quality := qualityengine.New(config.DefaultQualityConfig())
	registry := map[string]agents.Agent{
		"socratic":        agent,
		"project_manager": agent,
		"code_generator":  agent,
	}
	return New(store, quality, registry, maxRegen)
}

// A blocking pre-validation verdict must return before the agent is
// ever invoked.
func TestRoute_BlockedByPreValidateNeverExecutesAgent(t *testing.T) {
	store := &fakeStore{specs: nil, pending: nil} // maturity 0, well below any gate
	agent := &recordingAgent{fn: func(string, map[string]any) (*agents.Result, error) {
		return &agents.Result{Success: true}, nil
	}}
	orch := newOrchestrator(store, agent, 2)

	resp, err := orch.Route(context.Background(), "project_manager", "advance_phase", map[string]any{
		"project_id":   "p1",
		"target_phase": "design",
	}, Identity{UserID: "u1"})

	require.NoError(t, err)
	assert.True(t, resp.Blocked)
	assert.NotEmpty(t, resp.BlockReason)
	assert.NotEmpty(t, resp.BlockIssues)
	require.NotNil(t, resp.PathAnalysis)
	assert.Len(t, resp.PathAnalysis.Paths, 2)
	assert.Equal(t, 0, agent.executed, "pre_validate must reject before the agent ever runs")
}

func TestRoute_ApprovedAdvancePhaseExecutesAgent(t *testing.T) {
	counts := map[string]int{}
	for _, cat := range models.MaturityCategories {
		counts[cat] = 3
	}
	var specs []*models.Specification
	for cat, n := range counts {
		for i := 0; i < n; i++ {
			specs = append(specs, &models.Specification{Category: cat, IsCurrent: true})
		}
	}
	store := &fakeStore{specs: specs, pending: nil}
	agent := &recordingAgent{fn: func(string, map[string]any) (*agents.Result, error) {
		return &agents.Result{Success: true}, nil
	}}
	orch := newOrchestrator(store, agent, 2)

	resp, err := orch.Route(context.Background(), "project_manager", "advance_phase", map[string]any{
		"project_id":   "p1",
		"target_phase": "design",
	}, Identity{UserID: "u1"})

	require.NoError(t, err)
	assert.False(t, resp.Blocked)
	assert.Equal(t, 1, agent.executed)
}

// A biased first draft triggers a bounded regeneration loop; the
// first clean draft within the cap is the one returned.
func TestRoute_RegeneratesBiasedQuestionUpToCap(t *testing.T) {
	store := &fakeStore{}
	drafts := []string{
		"Don't you think we should use MongoDB here?",
		"Wouldn't it be better to use Kubernetes for this?",
		"What are your requirements for data durability?",
	}
	agent := &recordingAgent{}
	agent.fn = func(_ string, payload map[string]any) (*agents.Result, error) {
		draft := drafts[agent.executed-1]
		return &agents.Result{Success: true, Data: map[string]any{
			"question": &models.Question{Text: draft},
		}}, nil
	}
	orch := newOrchestrator(store, agent, 2)

	resp, err := orch.Route(context.Background(), "socratic", "generate_question", map[string]any{
		"project_id": "p1",
	}, Identity{UserID: "u1"})

	require.NoError(t, err)
	assert.Equal(t, 3, agent.executed, "two biased drafts should trigger exactly two regenerations before the clean third draft")
	require.NotNil(t, resp.QualityValidation)
	assert.True(t, resp.QualityValidation.Approved)
}

// An architecture draft missing its security section is sent back for
// regeneration; the corrected draft is approved.
func TestRoute_ArchitecturePostValidationRegenerates(t *testing.T) {
	store := &fakeStore{}
	agent := &recordingAgent{}
	agent.fn = func(_ string, _ map[string]any) (*agents.Result, error) {
		arch := qualityengine.ArchitectureResult{
			AllRequirementKeys:        []string{"scope"},
			ReferencedRequirementKeys: []string{"scope"},
			ComponentCount:            2,
			HasSecuritySection:        agent.executed > 1,
		}
		return &agents.Result{Success: true, Data: map[string]any{"architecture_result": arch}}, nil
	}
	orch := newOrchestrator(store, agent, 2)

	resp, err := orch.Route(context.Background(), "code_generator", "generate_architecture", map[string]any{
		"project_id": "p1",
		"team_size":  2,
	}, Identity{UserID: "u1"})

	require.NoError(t, err)
	assert.Equal(t, 2, agent.executed, "the missing security section triggers exactly one regeneration")
	require.NotNil(t, resp.QualityValidation)
	assert.True(t, resp.QualityValidation.Approved)
}

func TestRoute_RegenerationLoopBoundedByMaxRegenerations(t *testing.T) {
	store := &fakeStore{}
	agent := &recordingAgent{}
	agent.fn = func(_ string, _ map[string]any) (*agents.Result, error) {
		return &agents.Result{Success: true, Data: map[string]any{
			"question": &models.Question{Text: "Don't you think we should use AWS?"},
		}}, nil
	}
	orch := newOrchestrator(store, agent, 2)

	resp, err := orch.Route(context.Background(), "socratic", "generate_question", map[string]any{
		"project_id": "p1",
	}, Identity{UserID: "u1"})

	require.NoError(t, err)
	assert.Equal(t, 3, agent.executed, "one initial attempt plus exactly maxRegenerations regenerations")
	require.NotNil(t, resp.QualityValidation)
	assert.False(t, resp.QualityValidation.Approved, "the loop gives up and returns the last attempt once the cap is hit")
}

// A context that expires during an attempt must be rejected before the
// agent (and thus the gateway) is invoked again for a regeneration.
func TestRoute_DeadlineExceededBeforeRegenerationCall(t *testing.T) {
	store := &fakeStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The first draft is biased, so post_validate asks for a
	// regeneration; the deadline expires while that draft is produced.
	agent := &recordingAgent{fn: func(string, map[string]any) (*agents.Result, error) {
		cancel()
		return &agents.Result{Success: true, Data: map[string]any{
			"question": &models.Question{Text: "Don't you think we should use AWS?"},
		}}, nil
	}}
	orch := newOrchestrator(store, agent, 2)

	_, err := orch.Route(ctx, "socratic", "generate_question", map[string]any{"project_id": "p1"}, Identity{UserID: "u1"})
	assert.ErrorIs(t, err, apperrors.ErrDeadlineExceeded)
	assert.Equal(t, 1, agent.executed, "the expired deadline must be observed before the regeneration call reaches the agent")
}

func TestRoute_UnknownAgentIsAnError(t *testing.T) {
	orch := newOrchestrator(&fakeStore{}, &recordingAgent{fn: func(string, map[string]any) (*agents.Result, error) {
		return &agents.Result{}, nil
	}}, 0)
	_, err := orch.Route(context.Background(), "nonexistent", "do_something", nil, Identity{})
	assert.ErrorIs(t, err, apperrors.ErrUnknownAgent)
}

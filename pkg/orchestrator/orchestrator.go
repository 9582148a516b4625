// Package orchestrator implements the single routing entry point
// every caller operation passes through: resolve the target agent,
// gate major actions with the Quality engine before and after
// execution, and bound the regeneration loop a failed post-validation
// can trigger.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/specbench/workbench/pkg/agents"
	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/qualityengine"
)

// Store is the subset of workstore.Client the gate needs to load a
// project's specification and conflict state. Narrowed to an
// interface, mirroring pkg/specengine.Store, so Route's gating logic
// is testable against an in-memory fake.
type Store interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListCurrentSpecifications(ctx context.Context, projectID string) ([]*models.Specification, error)
	ListPendingConflicts(ctx context.Context, projectID string) ([]*models.Conflict, error)
}

// Identity carries the caller's opaque identity through a routed call
// so agents can record who acted without importing the identity store.
type Identity struct {
	UserID string
}

// Response is what Route returns to its caller.
type Response struct {
	Result            *agents.Result
	Blocked           bool
	BlockReason       string
	BlockIssues       []string
	PathAnalysis      *qualityengine.PathAnalysis
	Alternatives      []string
	QualityValidation *qualityengine.PostValidateResult
}

// majorAction identifies one (agent, action) pair the orchestrator
// gates with pre/post validation.
type majorAction struct {
	agentID string
	action  string
}

// majorActions is the fixed, closed set of gated operations. Every
// other (agentID, action) pair executes ungated.
var majorActions = map[majorAction]bool{
	{"project_manager", "advance_phase"}:        true,
	{"code_generator", "generate"}:              true,
	{"code_generator", "generate_architecture"}: true,
	{"socratic", "generate_question"}:           true,
	{"context", "extract_specifications"}:       true,
	{"conflict", "resolve"}:                     true,
}

// preValidateNames maps an agent's action name to the Quality engine's
// pre_validate dispatch key, where the two differ.
var preValidateNames = map[majorAction]string{
	{"code_generator", "generate"}: "generate_code",
}

// projectSerialized marks the major actions whose store mutation must
// be serialized per project: specification ingestion and conflict
// resolution, so two concurrent callers touching the same
// (project, category, key) or the same conflict can't interleave.
var projectSerialized = map[majorAction]bool{
	{"context", "extract_specifications"}: true,
	{"conflict", "resolve"}:               true,
}

// Orchestrator routes every caller operation through the appropriate
// agent, gating major actions with the Quality engine.
type Orchestrator struct {
	store            Store
	quality          *qualityengine.Engine
	registry         map[string]agents.Agent
	maxRegenerations int

	mu           sync.Mutex
	projectLocks map[string]*sync.Mutex
}

// New constructs an Orchestrator. registry maps agent IDs (e.g.
// "socratic", "project_manager") to their implementation.
func New(store Store, quality *qualityengine.Engine, registry map[string]agents.Agent, maxRegenerations int) *Orchestrator {
	return &Orchestrator{
		store:            store,
		quality:          quality,
		registry:         registry,
		maxRegenerations: maxRegenerations,
		projectLocks:     make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) lockProject(projectID string) (unlock func()) {
	o.mu.Lock()
	lock, ok := o.projectLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		o.projectLocks[projectID] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Route implements the full algorithm:
//  1. resolve agent
//  2. classify the operation as major or not via the static table
//  3. if major, pre_validate; a blocking verdict returns without
//     executing the agent at all — the pre-check never observes the
//     agent's effects, because none have happened yet
//  4. execute the agent
//  5. if major, post_validate; a regenerate verdict re-enters Route
//     with a bounded recursion depth; the post-check's only side
//     effects are a QualityMetric write (left to the caller) and this
//     bounded recursive dispatch — it never re-opens a closed conflict
//     or mutates a specification
//  6. return
func (o *Orchestrator) Route(ctx context.Context, agentID, action string, payload map[string]any, identity Identity) (*Response, error) {
	return o.route(ctx, agentID, action, payload, identity, 0)
}

func (o *Orchestrator) route(ctx context.Context, agentID, action string, payload map[string]any, identity Identity, regenerations int) (*Response, error) {
	// Checked on every entry, including regeneration re-entries, so a
	// deadline that expired during a prior attempt's LLM call is
	// observed here rather than spending another attempt first.
	if err := ctx.Err(); err != nil {
		return nil, apperrors.ErrDeadlineExceeded
	}

	agent, ok := o.registry[agentID]
	if !ok {
		return nil, apperrors.ErrUnknownAgent
	}

	key := majorAction{agentID, action}
	isMajor := majorActions[key]

	var unlockProject func()
	if isMajor {
		gateCtx, projectID, err := o.loadGateContext(ctx, payload)
		if err != nil {
			return nil, err
		}
		gateCtx.TargetPhase, _ = payload["target_phase"].(string)
		gateCtx.TeamSize, _ = payload["team_size"].(int)

		// Callers normally don't name the target phase: it is the next
		// one in the fixed sequence after the project's current phase.
		if gateCtx.TargetPhase == "" && action == "advance_phase" {
			project, err := o.store.GetProject(ctx, projectID)
			if err != nil {
				return nil, err
			}
			if next, ok := models.NextPhase(project.CurrentPhase); ok {
				gateCtx.TargetPhase = string(next)
			}
		}

		if projectSerialized[key] && projectID != "" {
			unlockProject = o.lockProject(projectID)
			defer func() {
				if unlockProject != nil {
					unlockProject()
				}
			}()
		}

		preValidateName := action
		if mapped, ok := preValidateNames[key]; ok {
			preValidateName = mapped
		}
		verdict := o.quality.PreValidate(preValidateName, gateCtx)
		if verdict.Blocking {
			return &Response{
				Blocked:      true,
				BlockReason:  verdict.Reason,
				BlockIssues:  verdict.Issues,
				PathAnalysis: verdict.PathAnalysis,
				Alternatives: verdict.Alternatives,
			}, nil
		}
	}

	result, err := agent.Execute(ctx, action, payload)
	if err != nil {
		return nil, fmt.Errorf("route %s.%s: %w", agentID, action, err)
	}

	if !isMajor {
		return &Response{Result: result}, nil
	}

	postVerdict := o.postValidate(action, result, payload)
	if postVerdict.ActionRequired == "regenerate" && regenerations < o.maxRegenerations {
		payload["regeneration_hint"] = postVerdict.Issues
		return o.route(ctx, agentID, action, payload, identity, regenerations+1)
	}

	return &Response{Result: result, QualityValidation: &postVerdict}, nil
}

// loadGateContext loads the specification and conflict state
// pre_validate needs to evaluate a major action's gate.
func (o *Orchestrator) loadGateContext(ctx context.Context, payload map[string]any) (qualityengine.PreValidateContext, string, error) {
	projectID, _ := payload["project_id"].(string)
	if projectID == "" {
		if sessionID, _ := payload["session_id"].(string); sessionID != "" {
			session, err := o.store.GetSession(ctx, sessionID)
			if err != nil {
				return qualityengine.PreValidateContext{}, "", err
			}
			projectID = session.ProjectID
		}
	}
	if projectID == "" {
		return qualityengine.PreValidateContext{}, "", apperrors.NewMissingParameter("project_id")
	}

	specs, err := o.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return qualityengine.PreValidateContext{}, projectID, fmt.Errorf("load gate context: %w", err)
	}
	pending, err := o.store.ListPendingConflicts(ctx, projectID)
	if err != nil {
		return qualityengine.PreValidateContext{}, projectID, fmt.Errorf("load gate context: %w", err)
	}

	return qualityengine.PreValidateContext{Specs: specs, PendingConflicts: len(pending)}, projectID, nil
}

// postValidate dispatches a completed major action's result to the
// matching Quality engine scorer.
func (o *Orchestrator) postValidate(action string, result *agents.Result, payload map[string]any) qualityengine.PostValidateResult {
	switch action {
	case "generate_question":
		question, _ := result.Data["question"].(*models.Question)
		if question == nil {
			return o.quality.PostValidateDefault()
		}
		return o.quality.PostValidateQuestion(qualityengine.QuestionResult{Text: question.Text, Role: question.Role})
	case "generate_architecture":
		arch, ok := result.Data["architecture_result"].(qualityengine.ArchitectureResult)
		if !ok {
			return o.quality.PostValidateDefault()
		}
		teamSize, _ := payload["team_size"].(int)
		return o.quality.PostValidateArchitecture(arch, teamSize)
	default:
		return o.quality.PostValidateDefault()
	}
}

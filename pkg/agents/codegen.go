package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specbench/workbench/pkg/llmgateway"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/qualityengine"
	"github.com/specbench/workbench/pkg/store/workstore"
)

// CodeGenerator runs both readiness gates and, once clear, emits a
// GeneratedProject version from the project's current specifications.
type CodeGenerator struct {
	store    *workstore.Client
	quality  *qualityengine.Engine
	gateway  *llmgateway.Gateway
	provider string
}

// NewCodeGenerator constructs a CodeGenerator agent.
func NewCodeGenerator(store *workstore.Client, quality *qualityengine.Engine, gateway *llmgateway.Gateway, provider string) *CodeGenerator {
	return &CodeGenerator{store: store, quality: quality, gateway: gateway, provider: provider}
}

func (a *CodeGenerator) Execute(ctx context.Context, action string, payload map[string]any) (*Result, error) {
	switch action {
	case "maturity_gate":
		return a.maturityGate(ctx, payload)
	case "conflict_gate":
		return a.conflictGate(ctx, payload)
	case "generate_architecture":
		return a.generateArchitecture(ctx, payload)
	case "generate":
		return a.generate(ctx, payload)
	default:
		return nil, unsupportedAction("code_generator", action)
	}
}

func (a *CodeGenerator) gateContext(ctx context.Context, projectID string) (qualityengine.PreValidateContext, error) {
	specs, err := a.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return qualityengine.PreValidateContext{}, fmt.Errorf("load specs: %w", err)
	}
	pending, err := a.store.ListPendingConflicts(ctx, projectID)
	if err != nil {
		return qualityengine.PreValidateContext{}, fmt.Errorf("load pending conflicts: %w", err)
	}
	return qualityengine.PreValidateContext{Specs: specs, PendingConflicts: len(pending)}, nil
}

func (a *CodeGenerator) maturityGate(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	gateCtx, err := a.gateContext(ctx, projectID)
	if err != nil {
		return nil, err
	}
	verdict := a.quality.PreValidate("generate_code", gateCtx)
	return &Result{Success: !verdict.Blocking, Data: map[string]any{"verdict": verdict}}, nil
}

func (a *CodeGenerator) conflictGate(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}
	pending, err := a.store.ListPendingConflicts(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("conflict_gate: %w", err)
	}
	return &Result{Success: len(pending) == 0, Data: map[string]any{"pending_conflicts": len(pending)}}, nil
}

// archDoc mirrors the JSON shape the architecture prompt asks the
// model for.
type archDoc struct {
	Components             []string `json:"components"`
	Security               string   `json:"security"`
	ReferencedRequirements []string `json:"referenced_requirements"`
}

// generateArchitecture drafts a component architecture from the
// project's current specifications and returns it together with the
// coverage fields post-validation scores it on: which requirement keys
// it references, how many components it declares, and whether it
// carries a security section.
func (a *CodeGenerator) generateArchitecture(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}

	specs, err := a.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("generate_architecture: load specs: %w", err)
	}

	var allRequirementKeys []string
	var prompt strings.Builder
	for _, s := range specs {
		if s.Category == "requirements" {
			allRequirementKeys = append(allRequirementKeys, s.Key)
		}
		fmt.Fprintf(&prompt, "%s.%s = %v\n", s.Category, s.Key, s.Value)
	}

	system := "Design a component architecture for the project specified below. " +
		`Respond as JSON: {"components": ["..."], "security": "...", "referenced_requirements": ["<requirement keys the design addresses>"]}.`
	if hint, ok := payload["regeneration_hint"]; ok {
		system += fmt.Sprintf(" A previous draft was rejected: %v. Address every listed issue.", hint)
	}

	result, err := a.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Provider:     a.provider,
		SystemPrompt: system,
		Messages:     []llmgateway.Message{{Role: "user", Content: prompt.String()}},
	})
	if err != nil {
		return nil, fmt.Errorf("generate_architecture: llm call: %w", err)
	}

	doc, err := decodeArchDoc(result.Content)
	if err != nil {
		return nil, fmt.Errorf("generate_architecture: %w", err)
	}

	if err := a.store.AppendActivityLog(ctx, &models.ActivityLog{
		ProjectID:  projectID,
		ActionType: "generate_architecture",
		EntityType: "project",
		EntityID:   projectID,
		Descr:      "architecture draft generated",
		SideData:   map[string]any{"components": doc.Components, "security": doc.Security},
	}); err != nil {
		return nil, fmt.Errorf("generate_architecture: record activity: %w", err)
	}

	return &Result{
		Success: true,
		Data: map[string]any{
			"architecture": doc,
			"architecture_result": qualityengine.ArchitectureResult{
				ReferencedRequirementKeys: doc.ReferencedRequirements,
				AllRequirementKeys:        allRequirementKeys,
				ComponentCount:            len(doc.Components),
				HasSecuritySection:        strings.TrimSpace(doc.Security) != "",
			},
		},
	}, nil
}

// decodeArchDoc parses the model's completion into an archDoc,
// scanning for the outermost { ... } span to tolerate surrounding
// prose.
func decodeArchDoc(content string) (archDoc, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start == -1 || end < start {
		return archDoc{}, fmt.Errorf("no JSON object found in completion content")
	}
	var doc archDoc
	if err := json.Unmarshal([]byte(content[start:end+1]), &doc); err != nil {
		return archDoc{}, fmt.Errorf("unmarshal architecture: %w", err)
	}
	return doc, nil
}

func (a *CodeGenerator) generate(ctx context.Context, payload map[string]any) (*Result, error) {
	projectID, err := stringParam(payload, "project_id")
	if err != nil {
		return nil, err
	}

	gen, err := a.store.CreateGeneratedProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	specs, err := a.store.ListCurrentSpecifications(ctx, projectID)
	if err != nil {
		_ = a.store.SetGeneratedProjectStatus(ctx, gen.ID, models.GeneratedStatusFailed)
		return nil, fmt.Errorf("generate: load specs: %w", err)
	}

	var prompt string
	for _, s := range specs {
		prompt += fmt.Sprintf("%s.%s = %v\n", s.Category, s.Key, s.Value)
	}

	result, err := a.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Provider:     a.provider,
		SystemPrompt: "Generate a project skeleton's file listing from the specifications below. Respond as one file path per line.",
		Messages:     []llmgateway.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		_ = a.store.SetGeneratedProjectStatus(ctx, gen.ID, models.GeneratedStatusFailed)
		return nil, fmt.Errorf("generate: llm call: %w", err)
	}

	for _, line := range splitNonEmptyLines(result.Content) {
		if err := a.store.AddGeneratedFile(ctx, gen.ID, line, 0); err != nil {
			_ = a.store.SetGeneratedProjectStatus(ctx, gen.ID, models.GeneratedStatusFailed)
			return nil, fmt.Errorf("generate: record file: %w", err)
		}
	}

	if err := a.store.SetGeneratedProjectStatus(ctx, gen.ID, models.GeneratedStatusCompleted); err != nil {
		return nil, fmt.Errorf("generate: finalize: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{"generated_project": gen}}, nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package agents

import (
	"context"
	"fmt"

	"github.com/specbench/workbench/pkg/llmgateway"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/specengine"
	"github.com/specbench/workbench/pkg/store/workstore"
)

// Socratic generates the next discovery question for a session,
// picking the category with the thinnest current coverage.
type Socratic struct {
	store    *workstore.Client
	gateway  *llmgateway.Gateway
	provider string
}

// NewSocratic constructs a Socratic agent.
func NewSocratic(store *workstore.Client, gateway *llmgateway.Gateway, provider string) *Socratic {
	return &Socratic{store: store, gateway: gateway, provider: provider}
}

func (a *Socratic) Execute(ctx context.Context, action string, payload map[string]any) (*Result, error) {
	switch action {
	case "generate_question":
		return a.generateQuestion(ctx, payload)
	case "generate_questions_batch":
		return a.generateQuestionsBatch(ctx, payload)
	default:
		return nil, unsupportedAction("socratic", action)
	}
}

func (a *Socratic) generateQuestion(ctx context.Context, payload map[string]any) (*Result, error) {
	sessionID, err := stringParam(payload, "session_id")
	if err != nil {
		return nil, err
	}
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	specs, err := a.store.ListCurrentSpecifications(ctx, session.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("generate_question: load specs: %w", err)
	}
	category := leastCoveredCategory(specs)

	question, err := a.askGateway(ctx, category)
	if err != nil {
		return nil, err
	}

	q := &models.Question{SessionID: sessionID, Text: question, Category: category, GenModel: a.provider}
	if err := a.store.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("generate_question: persist: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{"question": q}}, nil
}

func (a *Socratic) generateQuestionsBatch(ctx context.Context, payload map[string]any) (*Result, error) {
	sessionID, err := stringParam(payload, "session_id")
	if err != nil {
		return nil, err
	}
	count := 3
	if v, ok := payload["count"].(int); ok && v > 0 {
		count = v
	}

	questions := make([]*models.Question, 0, count)
	for i := 0; i < count; i++ {
		res, err := a.generateQuestion(ctx, map[string]any{"session_id": sessionID})
		if err != nil {
			return nil, err
		}
		questions = append(questions, res.Data["question"].(*models.Question))
	}
	return &Result{Success: true, Data: map[string]any{"questions": questions}}, nil
}

func (a *Socratic) askGateway(ctx context.Context, category string) (string, error) {
	result, err := a.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Provider:     a.provider,
		SystemPrompt: "Ask one open-ended discovery question about the project's \"" + category + "\" category. Do not suggest a specific technology or solution.",
		Messages:     []llmgateway.Message{{Role: "user", Content: "Generate the next question."}},
	})
	if err != nil {
		return "", fmt.Errorf("generate_question: llm call: %w", err)
	}
	return result.Content, nil
}

// leastCoveredCategory returns the maturity category with the lowest
// coverage score, breaking ties by the fixed category order.
func leastCoveredCategory(specs []*models.Specification) string {
	coverage := specengine.CategoryCoverage(specs)
	best := models.MaturityCategories[0]
	for _, cat := range models.MaturityCategories {
		if coverage[cat] < coverage[best] {
			best = cat
		}
	}
	return best
}

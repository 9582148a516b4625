package agents

import (
	"context"
	"fmt"

	"github.com/specbench/workbench/pkg/llmgateway"
	"github.com/specbench/workbench/pkg/models"
	"github.com/specbench/workbench/pkg/nlu"
	"github.com/specbench/workbench/pkg/store/workstore"
)

// RouteFunc re-enters the orchestrator for an operation intent
// classified out of free-form chat input. It is supplied by whatever
// wires DirectChat up (the orchestrator itself) to avoid an import
// cycle between the two packages.
type RouteFunc func(ctx context.Context, agentID, action string, payload map[string]any) (*Result, error)

// operationRoutes maps each classified operation intent to the
// orchestrator call it re-enters as. Members of the closed operation
// set with no entry here (registration, login/logout, listing,
// exporting, session start, ask_question) are served by the caller API
// directly; a
// chat turn classified as one of them is answered conversationally,
// and any missing required parameter on a routed one surfaces at the
// orchestrator boundary.
var operationRoutes = map[nlu.Op]struct {
	agentID string
	action  string
}{
	nlu.OpAskSocratic:     {"socratic", "generate_question"},
	nlu.OpCreateProject:   {"project_manager", "create"},
	nlu.OpResolveConflict: {"conflict", "resolve"},
	nlu.OpViewInsights:    {"quality", "analyze_coverage"},
	nlu.OpToggleMode:      {"direct_chat", "toggle_mode"},
}

// DirectChat classifies free-form input and either re-enters the
// orchestrator for an operational intent or answers conversationally
// over the session's history.
type DirectChat struct {
	store    *workstore.Client
	nlu      *nlu.Service
	gateway  *llmgateway.Gateway
	provider string
	route    RouteFunc
}

// NewDirectChat constructs a DirectChat agent. route is called for
// operation-classified intents; it may be nil until the orchestrator
// finishes wiring itself, but must be set before process_chat_message
// runs against real operation intents.
func NewDirectChat(store *workstore.Client, nluSvc *nlu.Service, gateway *llmgateway.Gateway, provider string, route RouteFunc) *DirectChat {
	return &DirectChat{store: store, nlu: nluSvc, gateway: gateway, provider: provider, route: route}
}

func (a *DirectChat) Execute(ctx context.Context, action string, payload map[string]any) (*Result, error) {
	switch action {
	case "process_chat_message":
		return a.processChatMessage(ctx, payload)
	case "toggle_mode":
		return a.toggleMode(ctx, payload)
	default:
		return nil, unsupportedAction("direct_chat", action)
	}
}

func (a *DirectChat) processChatMessage(ctx context.Context, payload map[string]any) (*Result, error) {
	sessionID, err := stringParam(payload, "session_id")
	if err != nil {
		return nil, err
	}
	message, err := stringParam(payload, "message")
	if err != nil {
		return nil, err
	}

	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := a.store.AppendConversationEntry(ctx, sessionID, models.ConversationRoleUser, message); err != nil {
		return nil, fmt.Errorf("process_chat_message: record user turn: %w", err)
	}

	intent, err := a.nlu.Parse(ctx, session.UserID, message)
	if err != nil {
		return nil, fmt.Errorf("process_chat_message: classify intent: %w", err)
	}

	if route, ok := operationRoutes[intent.Op]; ok {
		if a.route == nil {
			return nil, fmt.Errorf("process_chat_message: no orchestrator route configured")
		}
		opPayload := map[string]any{
			"session_id": sessionID,
			"project_id": session.ProjectID,
			"utterance":  message,
			"actor":      session.UserID,
			"owner_id":   session.UserID,
		}
		for k, v := range intent.Slots {
			opPayload[k] = v
		}
		result, err := a.route(ctx, route.agentID, route.action, opPayload)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return a.converse(ctx, sessionID, message)
}

// converse handles a turn that carries no operation to perform: the
// message still feeds specification extraction (statements made in
// chat are discovery material), then gets a conversational reply over
// the session's recorded history.
func (a *DirectChat) converse(ctx context.Context, sessionID, message string) (*Result, error) {
	var inserted, conflicts, maturity any
	if a.route != nil {
		extracted, err := a.route(ctx, "context", "extract_specifications", map[string]any{
			"session_id": sessionID,
			"utterance":  message,
		})
		if err != nil {
			return nil, err
		}
		if extracted != nil {
			inserted = extracted.Data["inserted"]
			conflicts = extracted.Data["conflicts"]
			maturity = extracted.Data["maturity"]
		}
	}

	history, err := a.store.ListConversationHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("process_chat_message: load history: %w", err)
	}

	messages := make([]llmgateway.Message, 0, len(history))
	for _, h := range history {
		messages = append(messages, llmgateway.Message{Role: string(h.Role), Content: h.Content})
	}

	result, err := a.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Provider:     a.provider,
		SystemPrompt: "Answer the user's message conversationally, staying within the project's discovery context.",
		Messages:     messages,
	})
	if err != nil {
		return nil, fmt.Errorf("process_chat_message: llm call: %w", err)
	}

	entry, err := a.store.AppendConversationEntry(ctx, sessionID, models.ConversationRoleAssistant, result.Content)
	if err != nil {
		return nil, fmt.Errorf("process_chat_message: record assistant turn: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{
		"reply":     entry,
		"extracted": inserted,
		"conflicts": conflicts,
		"maturity":  maturity,
	}}, nil
}

func (a *DirectChat) toggleMode(ctx context.Context, payload map[string]any) (*Result, error) {
	sessionID, err := stringParam(payload, "session_id")
	if err != nil {
		return nil, err
	}
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next := models.ModeSocratic
	if session.Mode == models.ModeSocratic {
		next = models.ModeDirectChat
	}
	if err := a.store.SetMode(ctx, sessionID, next); err != nil {
		return nil, fmt.Errorf("toggle_mode: %w", err)
	}
	return &Result{Success: true, Data: map[string]any{"mode": next}}, nil
}

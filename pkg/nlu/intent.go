package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specbench/workbench/pkg/llmgateway"
)

// Op is the closed, enumerated set of operations the NLU service can
// resolve free-form input into. Adding a member is a source change,
// not a runtime capability.
type Op string

const (
	OpRegisterUser    Op = "register_user"
	OpLoginUser       Op = "login_user"
	OpLogoutUser      Op = "logout_user"
	OpCreateProject   Op = "create_project"
	OpListProjects    Op = "list_projects"
	OpStartSession    Op = "start_session"
	OpAskQuestion     Op = "ask_question"
	OpResolveConflict Op = "resolve_conflict"
	OpViewInsights    Op = "view_insights"
	OpExportProject   Op = "export_project"
	OpAskSocratic     Op = "ask_socratic"
	OpToggleMode      Op = "toggle_mode"

	// OpUnknown is the degraded non-operation result, not a member of
	// the operation set itself.
	OpUnknown Op = "unknown"
)

// Intent is the structured result of classifying one piece of input.
// A non-operation classification carries the model's raw text in
// Response so the caller can fall back to conversation.
type Intent struct {
	Op         Op
	Confidence float64
	Slots      map[string]string
	Response   string
}

// Service parses free-form user input into an Intent, using a bounded
// memory window of the user's recent turns as context.
type Service struct {
	memory   *Registry
	gateway  *llmgateway.Gateway
	provider string
}

// New constructs an NLU Service. memoryWindow bounds how many turns
// are retained per user; provider names the LLM provider intent
// classification calls use.
func New(gateway *llmgateway.Gateway, memoryWindow int, provider string) *Service {
	return &Service{
		memory:   NewRegistry(memoryWindow),
		gateway:  gateway,
		provider: provider,
	}
}

type intentResponse struct {
	Op         string            `json:"op"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots"`
}

// Parse classifies input for userID, folding it into that user's
// conversation memory first so the classification prompt carries
// recent context.
func (s *Service) Parse(ctx context.Context, userID, input string) (Intent, error) {
	s.memory.Remember(userID, Turn{Role: "user", Content: input})

	history := s.memory.Recall(userID)
	messages := make([]llmgateway.Message, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, llmgateway.Message{Role: t.Role, Content: t.Content})
	}

	result, err := s.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Provider: s.provider,
		SystemPrompt: "Classify the final user message into exactly one op from: " +
			"register_user, login_user, logout_user, create_project, list_projects, " +
			"start_session, ask_question, resolve_conflict, view_insights, " +
			"export_project, ask_socratic, toggle_mode, unknown. Respond as JSON: " +
			`{"op": "...", "confidence": 0.0-1.0, "slots": {...}}`,
		Messages: messages,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("intent classification failed: %w", err)
	}

	intent, err := decodeIntent(result.Content)
	if err != nil {
		// Not a parseable intent envelope: degrade to a non-operation
		// result echoing the raw text rather than failing the turn.
		intent = Intent{Op: OpUnknown, Response: result.Content}
	}

	s.memory.Remember(userID, Turn{Role: "assistant", Content: result.Content})
	return intent, nil
}

// EndSession clears userID's conversation memory.
func (s *Service) EndSession(userID string) {
	s.memory.Forget(userID)
}

func decodeIntent(content string) (Intent, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return Intent{Op: OpUnknown, Response: content}, nil
	}

	var parsed intentResponse
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &parsed); err != nil {
		return Intent{}, fmt.Errorf("decode intent response: %w", err)
	}

	op := Op(parsed.Op)
	switch op {
	case OpRegisterUser, OpLoginUser, OpLogoutUser, OpCreateProject, OpListProjects,
		OpStartSession, OpAskQuestion, OpResolveConflict, OpViewInsights,
		OpExportProject, OpAskSocratic, OpToggleMode:
	default:
		op = OpUnknown
	}

	return Intent{Op: op, Confidence: parsed.Confidence, Slots: parsed.Slots}, nil
}

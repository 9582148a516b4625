package nlu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specbench/workbench/pkg/llmgateway"
)

type stubProvider struct {
	body string
}

func (p stubProvider) Complete(_ context.Context, _ llmgateway.CompletionRequest) (llmgateway.CompletionResult, error) {
	return llmgateway.CompletionResult{Content: p.body}, nil
}

func TestDecodeIntent_KnownOp(t *testing.T) {
	intent, err := decodeIntent(`{"op": "toggle_mode", "confidence": 0.92, "slots": {"mode": "direct_chat"}}`)
	require.NoError(t, err)
	assert.Equal(t, OpToggleMode, intent.Op)
	assert.InDelta(t, 0.92, intent.Confidence, 0.001)
	assert.Equal(t, "direct_chat", intent.Slots["mode"])
}

func TestDecodeIntent_AcceptsEveryMemberOfTheClosedSet(t *testing.T) {
	ops := []Op{
		OpRegisterUser, OpLoginUser, OpLogoutUser, OpCreateProject,
		OpListProjects, OpStartSession, OpAskQuestion, OpResolveConflict,
		OpViewInsights, OpExportProject, OpAskSocratic, OpToggleMode,
	}
	for _, op := range ops {
		intent, err := decodeIntent(`{"op": "` + string(op) + `", "confidence": 0.9}`)
		require.NoError(t, err, string(op))
		assert.Equal(t, op, intent.Op)
	}
}

func TestDecodeIntent_UnrecognizedOpFallsBackToUnknown(t *testing.T) {
	intent, err := decodeIntent(`{"op": "delete_everything", "confidence": 0.9}`)
	require.NoError(t, err)
	assert.Equal(t, OpUnknown, intent.Op)
}

func TestDecodeIntent_ProseWithNoBraceFallsBackToUnknown(t *testing.T) {
	intent, err := decodeIntent("I'm not sure what you mean.")
	require.NoError(t, err)
	assert.Equal(t, OpUnknown, intent.Op)
	assert.Equal(t, "I'm not sure what you mean.", intent.Response)
}

func TestService_ParseDegradesOnUnparseableEnvelope(t *testing.T) {
	gw := llmgateway.New(stubProvider{body: `{"op": "toggle_mode", "confidence": }`}, 0)
	svc := New(gw, 5, "stub")

	intent, err := svc.Parse(context.Background(), "u1", "switch to chat please")
	require.NoError(t, err, "a malformed classifier response degrades to a non-operation intent, never a failed turn")
	assert.Equal(t, OpUnknown, intent.Op)
	assert.Equal(t, `{"op": "toggle_mode", "confidence": }`, intent.Response)
}

func TestDecodeIntent_MalformedJSONIsAnError(t *testing.T) {
	_, err := decodeIntent(`{"op": "toggle_mode", "confidence": }`)
	assert.Error(t, err)
}

func TestDecodeIntent_ScansOutermostBraceSpan(t *testing.T) {
	intent, err := decodeIntent("Here you go: " + `{"op": "export_project", "confidence": 0.7, "slots": {"format": "pdf"}}` + " hope that helps")
	require.NoError(t, err)
	assert.Equal(t, OpExportProject, intent.Op)
	assert.Equal(t, "pdf", intent.Slots["format"])
}

func TestService_ParseFoldsInputIntoMemoryAndClassifies(t *testing.T) {
	gw := llmgateway.New(stubProvider{body: `{"op": "ask_socratic", "confidence": 0.8, "slots": {}}`}, 0)
	svc := New(gw, 5, "stub")

	intent, err := svc.Parse(context.Background(), "u1", "Can you clarify the deadline?")
	require.NoError(t, err)
	assert.Equal(t, OpAskSocratic, intent.Op)

	history := svc.memory.Recall("u1")
	require.Len(t, history, 2, "both the user's turn and the classifier's raw response are remembered")
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "Can you clarify the deadline?", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestService_EndSessionClearsMemory(t *testing.T) {
	gw := llmgateway.New(stubProvider{body: `{"op": "unknown", "confidence": 0.1, "slots": {}}`}, 0)
	svc := New(gw, 5, "stub")

	_, err := svc.Parse(context.Background(), "u1", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, svc.memory.Recall("u1"))

	svc.EndSession("u1")
	assert.Nil(t, svc.memory.Recall("u1"))
}

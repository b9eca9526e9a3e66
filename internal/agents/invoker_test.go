package agents

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/adapters/ai"
	"minerva/internal/metrics"
	"minerva/internal/tools"
	"minerva/pkg/errors"
)

type scriptedChat struct {
	responses []*ai.ChatResponse
	err       error
	requests  []ai.ChatRequest
}

func (s *scriptedChat) Name() string { return "scripted" }

func (s *scriptedChat) GetModel(_ context.Context, model string) (ai.ModelInfo, error) {
	return ai.ModelInfo{Name: model}, nil
}

func (s *scriptedChat) ListModels(_ context.Context) ([]ai.ModelInfo, error) { return nil, nil }

func (s *scriptedChat) SupportsTools() bool { return true }

func (s *scriptedChat) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

type staticRenderer struct{}

func (staticRenderer) Render(id string, _ interface{}) (string, error) {
	return "prompt for " + id, nil
}

func textResponse(text string) *ai.ChatResponse {
	return &ai.ChatResponse{
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: text},
			FinishReason: ai.FinishReasonStop,
		}},
	}
}

func toolCallResponse(callID, tool, args string) *ai.ChatResponse {
	return &ai.ChatResponse{
		Choices: []ai.Choice{{
			Message: ai.Message{
				Role: ai.RoleAssistant,
				ToolCalls: []ai.ToolCall{{
					ID:       callID,
					Type:     "function",
					Function: ai.FunctionCall{Name: tool, Arguments: args},
				}},
			},
			FinishReason: ai.FinishReasonToolCalls,
		}},
	}
}

func echoRegistry() *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(tools.New(tools.WebSearchToolName, "search", map[string]interface{}{"type": "object"},
		func(_ context.Context, args map[string]interface{}) (string, error) {
			query, _ := args["query"].(string)
			return "results for " + query, nil
		}))
	return registry
}

func TestInvoke_DirectAnswer(t *testing.T) {
	chat := &scriptedChat{responses: []*ai.ChatResponse{textResponse("business model summary")}}
	inv := NewInvoker(chat, "test-model", staticRenderer{}, echoRegistry())

	out, err := inv.Invoke(context.Background(), RoleBusinessModel, map[string]interface{}{"ShareName": "Apple"})
	require.NoError(t, err)
	assert.Equal(t, "business model summary", out)

	// System prompt first, then the user turn; tools attached for the role.
	req := chat.requests[0]
	assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "prompt for roles/business_model", req.Messages[0].Content)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, tools.WebSearchToolName, req.Tools[0].Function.Name)
}

func TestInvoke_ToolLoop(t *testing.T) {
	chat := &scriptedChat{responses: []*ai.ChatResponse{
		toolCallResponse("call_1", tools.WebSearchToolName, `{"query":"Apple news"}`),
		textResponse("final answer"),
	}}
	inv := NewInvoker(chat, "test-model", staticRenderer{}, echoRegistry())

	out, err := inv.Invoke(context.Background(), RoleNewsSentiment, nil)
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)

	// Second request carries the assistant turn and the tool result.
	require.Len(t, chat.requests, 2)
	second := chat.requests[1]
	last := second.Messages[len(second.Messages)-1]
	assert.Equal(t, ai.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "results for Apple news", last.Content)
}

func TestInvoke_UnknownToolReportsError(t *testing.T) {
	chat := &scriptedChat{responses: []*ai.ChatResponse{
		toolCallResponse("call_1", "nonexistent", `{}`),
		textResponse("answer without the tool"),
	}}
	inv := NewInvoker(chat, "test-model", staticRenderer{}, echoRegistry())

	out, err := inv.Invoke(context.Background(), RoleBusinessModel, nil)
	require.NoError(t, err)
	assert.Equal(t, "answer without the tool", out)

	last := chat.requests[1].Messages[len(chat.requests[1].Messages)-1]
	assert.Contains(t, last.Content, "not available")
}

func TestInvoke_ToolBudgetExceeded(t *testing.T) {
	loop := toolCallResponse("call_x", tools.WebSearchToolName, `{"query":"again"}`)
	chat := &scriptedChat{responses: []*ai.ChatResponse{loop}}
	inv := NewInvoker(chat, "test-model", staticRenderer{}, echoRegistry())

	_, err := inv.Invoke(context.Background(), RoleBusinessModel, nil)
	assert.ErrorIs(t, err, errors.ErrPipelineFault)
}

func TestInvoke_BlankCompletion(t *testing.T) {
	chat := &scriptedChat{responses: []*ai.ChatResponse{textResponse("   ")}}
	inv := NewInvoker(chat, "test-model", staticRenderer{}, echoRegistry())

	_, err := inv.Invoke(context.Background(), RoleNarrative, nil)
	assert.ErrorIs(t, err, errors.ErrEmptyResponse)
}

func TestInvoke_ProviderError(t *testing.T) {
	chat := &scriptedChat{err: errors.ErrProviderUnavailable}
	inv := NewInvoker(chat, "test-model", staticRenderer{}, echoRegistry())

	_, err := inv.Invoke(context.Background(), RoleNarrative, nil)
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
}

func TestInvoke_UnknownRole(t *testing.T) {
	inv := NewInvoker(&scriptedChat{}, "test-model", staticRenderer{}, echoRegistry())

	_, err := inv.Invoke(context.Background(), RoleType("nope"), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestDefaultRoleConfigs_TemplatesBound(t *testing.T) {
	for role, cfg := range DefaultRoleConfigs {
		assert.NotEmpty(t, cfg.PromptTemplate, "role %s", role)
		assert.Equal(t, role, cfg.Type)
	}
}

func TestInvoke_RecordsRoleMetrics(t *testing.T) {
	role := RoleBusinessModel.String()
	callsBefore := testutil.ToFloat64(metrics.RoleCalls.WithLabelValues(role, "success"))
	inputBefore := testutil.ToFloat64(metrics.RoleTokens.WithLabelValues(role, "input"))
	outputBefore := testutil.ToFloat64(metrics.RoleTokens.WithLabelValues(role, "output"))

	resp := textResponse("business model summary")
	resp.Usage = ai.Usage{PromptTokens: 120, CompletionTokens: 45, TotalTokens: 165}
	chat := &scriptedChat{responses: []*ai.ChatResponse{resp}}
	inv := NewInvoker(chat, "test-model", staticRenderer{}, echoRegistry())

	_, err := inv.Invoke(context.Background(), RoleBusinessModel, nil)
	require.NoError(t, err)

	assert.Equal(t, callsBefore+1, testutil.ToFloat64(metrics.RoleCalls.WithLabelValues(role, "success")))
	assert.Equal(t, inputBefore+120, testutil.ToFloat64(metrics.RoleTokens.WithLabelValues(role, "input")))
	assert.Equal(t, outputBefore+45, testutil.ToFloat64(metrics.RoleTokens.WithLabelValues(role, "output")))
}

func TestInvoke_RecordsRoleError(t *testing.T) {
	role := RoleNarrative.String()
	before := testutil.ToFloat64(metrics.RoleCalls.WithLabelValues(role, "error"))

	chat := &scriptedChat{err: errors.ErrProviderUnavailable}
	inv := NewInvoker(chat, "test-model", staticRenderer{}, echoRegistry())

	_, err := inv.Invoke(context.Background(), RoleNarrative, nil)
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RoleCalls.WithLabelValues(role, "error")))
}

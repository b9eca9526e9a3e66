package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"minerva/internal/adapters/ai"
	"minerva/internal/metrics"
	"minerva/internal/tools"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// RoleInvoker runs one research role to completion and returns its text.
type RoleInvoker interface {
	Invoke(ctx context.Context, role RoleType, data map[string]interface{}) (string, error)
}

// PromptRenderer renders a named prompt template with data.
type PromptRenderer interface {
	Render(id string, data interface{}) (string, error)
}

// Invoker drives a single chat provider through the prompt-and-tools loop a
// role needs: render the system prompt, let the model call its tools, feed
// results back, and return the final text.
type Invoker struct {
	chat      ai.ChatProvider
	model     string
	templates PromptRenderer
	tools     *tools.Registry
	log       *logger.Logger
}

// Compile-time check
var _ RoleInvoker = (*Invoker)(nil)

// NewInvoker creates a role invoker bound to one provider and model.
func NewInvoker(chat ai.ChatProvider, model string, templates PromptRenderer, registry *tools.Registry) *Invoker {
	return &Invoker{
		chat:      chat,
		model:     model,
		templates: templates,
		tools:     registry,
		log:       logger.Get().With("component", "invoker"),
	}
}

// Invoke runs one role. The returned text is the model's final answer;
// ErrEmptyResponse is returned when the model produced nothing usable.
func (inv *Invoker) Invoke(ctx context.Context, role RoleType, data map[string]interface{}) (text string, err error) {
	cfg, ok := DefaultRoleConfigs[role]
	if !ok {
		return "", errors.Wrapf(errors.ErrInvalidInput, "unknown role %s", role)
	}

	var promptTokens, completionTokens int
	defer func() {
		metrics.RecordRole(role.String(), promptTokens, completionTokens, err)
	}()

	if cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TotalTimeout)
		defer cancel()
	}

	prompt, err := inv.templates.Render(cfg.PromptTemplate, data)
	if err != nil {
		return "", errors.Wrapf(err, "render prompt for role %s", role)
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: prompt},
		{Role: ai.RoleUser, Content: "Proceed with the analysis."},
	}
	defs := inv.toolDefs(cfg)

	toolCalls := 0
	for {
		resp, err := inv.chat.Chat(ctx, ai.ChatRequest{
			Model:       inv.model,
			Messages:    messages,
			Tools:       defs,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return "", errors.Wrapf(err, "role %s chat", role)
		}
		promptTokens += resp.Usage.PromptTokens
		completionTokens += resp.Usage.CompletionTokens

		if len(resp.Choices) == 0 {
			return "", errors.Wrapf(errors.ErrEmptyResponse, "role %s: no choices", role)
		}

		choice := resp.Choices[0]

		if choice.FinishReason != ai.FinishReasonToolCalls || len(choice.Message.ToolCalls) == 0 {
			text := strings.TrimSpace(choice.Message.Content)
			if text == "" {
				return "", errors.Wrapf(errors.ErrEmptyResponse, "role %s: blank completion", role)
			}
			inv.log.Debugf("Role %s finished after %d tool calls (tokens: %d)",
				role, toolCalls, resp.Usage.TotalTokens)
			return text, nil
		}

		if toolCalls+len(choice.Message.ToolCalls) > cfg.MaxToolCalls {
			return "", errors.Wrapf(errors.ErrPipelineFault,
				"role %s exceeded tool call budget (%d)", role, cfg.MaxToolCalls)
		}

		messages = append(messages, choice.Message)
		for _, call := range choice.Message.ToolCalls {
			toolCalls++
			messages = append(messages, inv.runTool(ctx, role, call))
		}
	}
}

// runTool executes one requested tool call. Failures become tool messages so
// the model can carry on with what it has.
func (inv *Invoker) runTool(ctx context.Context, role RoleType, call ai.ToolCall) ai.Message {
	result := ai.Message{
		Role:       ai.RoleTool,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	}

	tool, ok := inv.tools.Get(call.Function.Name)
	if !ok {
		inv.log.Warnf("Role %s requested unknown tool %s", role, call.Function.Name)
		result.Content = fmt.Sprintf("Error: tool %s is not available", call.Function.Name)
		return result
	}

	var args map[string]interface{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			inv.log.Warnf("Role %s sent malformed arguments for %s: %v", role, call.Function.Name, err)
			result.Content = fmt.Sprintf("Error: malformed tool arguments: %v", err)
			return result
		}
	}

	out, err := tool.Execute(ctx, args)
	if err != nil {
		inv.log.Warnf("Tool %s failed for role %s: %v", call.Function.Name, role, err)
		result.Content = fmt.Sprintf("Error: %v", err)
		return result
	}

	result.Content = out
	return result
}

func (inv *Invoker) toolDefs(cfg RoleConfig) []ai.ToolDefinition {
	if len(cfg.Tools) == 0 || inv.tools == nil {
		return nil
	}
	return inv.tools.Definitions(cfg.Tools)
}

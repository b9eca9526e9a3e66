package tools

import (
	"context"
	"errors"

	"minerva/internal/adapters/ai"
	"minerva/internal/metrics"
)

// Tool represents a callable capability exposed to agents.
type Tool interface {
	// Name returns the unique tool identifier.
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Parameters returns the JSON schema for the tool arguments.
	Parameters() map[string]interface{}
	// Execute performs the tool's action using the provided arguments.
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (string, error)

// FunctionTool is a simple Tool implementation backed by a handler function.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]interface{}
	handler     HandlerFunc
}

// New creates a new function-backed Tool.
func New(name, description string, parameters map[string]interface{}, handler HandlerFunc) Tool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		handler:     handler,
	}
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns a human description of the tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the argument schema.
func (t *FunctionTool) Parameters() map[string]interface{} { return t.parameters }

// Execute runs the underlying handler.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if t.handler == nil {
		return "", errors.New("tool handler is not defined")
	}

	out, err := t.handler(ctx, args)
	metrics.RecordTool(t.name, err)
	return out, err
}

// Definition converts a tool into the wire format chat providers expect.
func Definition(t Tool) ai.ToolDefinition {
	return ai.ToolDefinition{
		Type: "function",
		Function: ai.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

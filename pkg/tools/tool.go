// Package tools provides the tool abstraction shared by the orchestrator and its workers:
// tool schemas, parameter validation, an executor, and the built-in workspace tools.
package tools

import "context"

// Property describes a single parameter in a tool's input schema.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
}

// InputSchema is the JSON-schema subset used to declare tool parameters.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is what the reasoning engine sees for a tool.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// Tool is a named capability invoked with validated parameters.
// Exec returns a payload on success. A returned error is reported to the
// engine as a failed tool result; it never aborts the conversation.
type Tool interface {
	Name() string
	Definition() ToolDefinition
	Exec(ctx context.Context, args map[string]any) (any, error)
}

// Result is the structured outcome of one tool invocation.
type Result struct {
	Success bool     `json:"success"`
	Payload any      `json:"payload,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Validation is the outcome of checking parameters against a tool schema.
type Validation struct {
	Valid  bool
	Errors []string
}

// Failure builds a failed Result.
func Failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Success builds a successful Result.
func Success(payload any) Result {
	return Result{Success: true, Payload: payload}
}

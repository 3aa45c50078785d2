// Package openaiofficial adapts the OpenAI Responses API to llm.LLMClient
// using the official OpenAI Go package.
package openaiofficial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-5"

// OfficialClient wraps the official OpenAI Go client to implement llm.LLMClient.
//
//nolint:govet // Simple struct, field alignment not critical
type OfficialClient struct {
	client openai.Client
	model  string
}

// NewOfficialClientWithModel creates a raw client; middleware is applied by the caller.
func NewOfficialClientWithModel(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OfficialClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// buildInput converts the conversation into Responses API input items.
// System messages become Instructions.
func buildInput(messages []llm.CompletionMessage) (instructions string, items responses.ResponseInputParam) {
	var system []string
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleUser:
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		case llm.RoleAssistant:
			if msg.Content != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
			}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Parameters)
				if err != nil || call.Parameters == nil {
					args = []byte("{}")
				}
				items = append(items, responses.ResponseInputItemParamOfFunctionCall(string(args), call.ID, call.Name))
			}
		case llm.RoleTool:
			for _, res := range msg.ToolResults {
				items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(res.ToolCallID, res.Content))
			}
		}
	}
	return strings.Join(system, "\n\n"), items
}

func toolParams(in *llm.CompletionRequest) []responses.ToolUnionParam {
	out := make([]responses.ToolUnionParam, len(in.Tools))
	for i := range in.Tools {
		def := &in.Tools[i]
		out[i] = responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.InputSchema.JSONSchema(),
				Strict:      openai.Bool(false),
			},
		}
	}
	return out
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // CompletionRequest passed by value to match interface
func (o *OfficialClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	instructions, items := buildInput(in.Messages)
	if len(items) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "no input messages")
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: items},
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	if len(in.Tools) > 0 {
		params.Tools = toolParams(&in)
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return llm.CompletionResponse{}, llmerrors.Classify(err, apiErr.StatusCode)
		}
		return llm.CompletionResponse{}, llmerrors.Classify(err, 0)
	}
	if resp == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from OpenAI Responses API")
	}

	var toolCalls []llm.ToolCall
	for i := range resp.Output {
		item := &resp.Output[i]
		if item.Type != "function_call" {
			// Reasoning and message items are covered by OutputText.
			continue
		}
		call := item.AsFunctionCall()
		var params map[string]any
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
				return llm.CompletionResponse{}, fmt.Errorf("failed to parse arguments for %s: %w", call.Name, err)
			}
		}
		toolCalls = append(toolCalls, llm.ToolCall{ID: call.CallID, Name: call.Name, Parameters: params})
	}

	stop := "end_turn"
	switch {
	case len(toolCalls) > 0:
		stop = "tool_use"
	case resp.Status == "incomplete":
		stop = "max_tokens"
	}

	return llm.CompletionResponse{
		Content:    resp.OutputText(),
		ToolCalls:  toolCalls,
		StopReason: stop,
	}, nil
}

// GetModelName returns the model name for this client.
func (o *OfficialClient) GetModelName() string {
	return o.model
}

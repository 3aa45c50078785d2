// Package toolloop provides the bounded tool-calling conversation shared by
// the orchestrator and its workers.
package toolloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/logx"
	"agentcore/pkg/tools"
	"agentcore/pkg/utils"
)

// DefaultMaxIterations bounds engine round trips when a Config does not set one.
const DefaultMaxIterations = 10

// ToolExecutor validates and runs tools by name. Unknown names come back as
// failed results, never as errors.
type ToolExecutor interface {
	Definitions() []tools.ToolDefinition
	Validate(name string, params map[string]any) tools.Validation
	Execute(ctx context.Context, name string, params map[string]any) tools.Result
}

// Invocation is one dispatched tool call and the result it produced.
type Invocation struct {
	Call      llm.ToolCall
	Result    tools.Result
	Timestamp time.Time
}

// ToolLoop drives one agent's conversation with the engine.
type ToolLoop struct {
	llmClient llm.LLMClient
	logger    *logx.Logger
}

// New creates a new ToolLoop instance.
func New(llmClient llm.LLMClient, logger *logx.Logger) *ToolLoop {
	if logger == nil {
		logger = logx.NewLogger("toolloop")
	}
	return &ToolLoop{
		llmClient: llmClient,
		logger:    logger,
	}
}

// Config defines how the tool loop behaves.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Config struct {
	// Seed prompts. SystemPrompt may be empty; InitialPrompt starts the conversation.
	SystemPrompt  string
	InitialPrompt string

	Tools ToolExecutor

	// OnToolResult is called after each invocation, in invocation order.
	OnToolResult func(ctx context.Context, inv Invocation)

	MaxIterations int
	MaxTokens     int
	Temperature   float32

	// AgentID is attached to the context for logging and metrics.
	AgentID string
}

// Run executes the loop until the engine gives a final response, the
// iteration cap is hit, or the engine fails. Run never returns a Go error:
// every ending is described by the Outcome.
func (tl *ToolLoop) Run(ctx context.Context, cfg *Config) Outcome {
	if cfg.Tools == nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("tool executor is required")}
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	if cfg.AgentID != "" {
		ctx = logx.WithAgentID(ctx, cfg.AgentID)
	}

	history := make([]llm.CompletionMessage, 0, 2+2*maxIterations)
	if cfg.SystemPrompt != "" {
		history = append(history, llm.NewSystemMessage(cfg.SystemPrompt))
	}
	if cfg.InitialPrompt != "" {
		history = append(history, llm.NewUserMessage(cfg.InitialPrompt))
	}

	toolDefs := cfg.Tools.Definitions()
	toolCalls := 0

	for iteration := 0; iteration < maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			tl.logger.Info("🛑 Context cancelled before iteration %d", iteration+1)
			return Outcome{Kind: OutcomeError, History: history, Iterations: iteration, ToolCalls: toolCalls,
				Err: errors.Join(ErrGracefulShutdown, err)}
		}

		req := llm.CompletionRequest{
			Messages:    history,
			Tools:       toolDefs,
			MaxTokens:   maxTokens,
			Temperature: cfg.Temperature,
		}

		tl.logger.Info("🔄 Starting LLM call to model '%s' with %d messages (iteration %d/%d)...",
			tl.llmClient.GetModelName(), len(history), iteration+1, maxIterations)
		logx.Debug(ctx, "toolloop", "conversation size ~%d tokens", conversationTokens(history))

		start := time.Now()
		resp, err := tl.llmClient.Complete(ctx, req)
		duration := time.Since(start)

		if err != nil {
			if ctx.Err() != nil {
				tl.logger.Info("🛑 LLM call interrupted after %.3fs", duration.Seconds())
				return Outcome{Kind: OutcomeError, History: history, Iterations: iteration + 1, ToolCalls: toolCalls,
					Err: errors.Join(ErrGracefulShutdown, err)}
			}
			tl.logger.Error("❌ LLM call failed after %.3fs: %v", duration.Seconds(), err)
			return Outcome{Kind: OutcomeError, History: history, Iterations: iteration + 1, ToolCalls: toolCalls,
				Err: fmt.Errorf("LLM completion failed: %w", err)}
		}

		tl.logger.Info("✅ LLM call completed in %.3fs, %d tool calls", duration.Seconds(), len(resp.ToolCalls))

		if err := checkResponse(&resp); err != nil {
			tl.logger.Error("❌ %v", err)
			return Outcome{Kind: OutcomeError, History: history, Iterations: iteration + 1, ToolCalls: toolCalls, Err: err}
		}

		calls := withCallIDs(resp.ToolCalls)
		history = append(history, llm.NewAssistantMessage(resp.Content, calls))

		if len(calls) == 0 {
			return Outcome{
				Kind:       OutcomeCompletion,
				Message:    resp.Content,
				History:    history,
				Iterations: iteration + 1,
				ToolCalls:  toolCalls,
			}
		}

		// All results of this turn go back together, in the order the engine asked for them.
		results := make([]llm.ToolResult, 0, len(calls))
		for i := range calls {
			call := calls[i]
			result := tl.dispatch(ctx, cfg.Tools, &call)
			toolCalls++

			if cfg.OnToolResult != nil {
				cfg.OnToolResult(ctx, Invocation{Call: call, Result: result, Timestamp: time.Now()})
			}
			results = append(results, llm.ToolResult{
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    formatToolResult(&result),
				IsError:    !result.Success,
			})
		}
		history = append(history, llm.NewToolResultMessage(results))
	}

	tl.logger.Warn("⚠️  Maximum tool iterations (%d) reached", maxIterations)
	return Outcome{
		Kind:       OutcomeTimeout,
		History:    history,
		Iterations: maxIterations,
		ToolCalls:  toolCalls,
		Err:        ErrIterationLimit,
	}
}

// dispatch validates then executes one call. A validation failure never reaches the tool.
func (tl *ToolLoop) dispatch(ctx context.Context, exec ToolExecutor, call *llm.ToolCall) tools.Result {
	params := call.Parameters
	if params == nil {
		params = map[string]any{}
	}

	if v := exec.Validate(call.Name, params); !v.Valid {
		tl.logger.Warn("Tool %s rejected: %s", call.Name, strings.Join(v.Errors, "; "))
		return tools.Result{
			Success: false,
			Error:   strings.Join(v.Errors, "; "),
			Errors:  v.Errors,
		}
	}

	start := time.Now()
	result := exec.Execute(ctx, call.Name, params)
	if result.Success {
		tl.logger.Info("Tool %s completed in %.3fs", call.Name, time.Since(start).Seconds())
	} else {
		tl.logger.Warn("Tool %s failed after %.3fs: %s", call.Name, time.Since(start).Seconds(), result.Error)
	}
	return result
}

func checkResponse(resp *llm.CompletionResponse) error {
	if len(resp.ToolCalls) == 0 && strings.TrimSpace(resp.Content) == "" {
		return fmt.Errorf("%w: no content and no tool calls (stop reason %q)", ErrEmptyResponse, resp.StopReason)
	}
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].Name == "" {
			return fmt.Errorf("%w: tool call %d has no name", ErrEmptyResponse, i)
		}
	}
	return nil
}

// withCallIDs returns the calls with a synthetic id on any call that lacks one,
// so every result can be matched to its request.
func withCallIDs(calls []llm.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, len(calls))
	copy(out, calls)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = "call_" + uuid.NewString()
		}
	}
	return out
}

// formatToolResult serializes the structured result as the tool turn's content.
func formatToolResult(result *tools.Result) string {
	data, err := json.Marshal(result)
	if err != nil {
		if result.Success {
			return fmt.Sprintf(`{"success":true,"payload":%q}`, fmt.Sprint(result.Payload))
		}
		return fmt.Sprintf(`{"success":false,"error":%q}`, result.Error)
	}
	return string(data)
}

func conversationTokens(history []llm.CompletionMessage) int {
	total := 0
	for i := range history {
		total += utils.CountTokensSimple(history[i].Content)
		for j := range history[i].ToolResults {
			total += utils.CountTokensSimple(history[i].ToolResults[j].Content)
		}
	}
	return total
}

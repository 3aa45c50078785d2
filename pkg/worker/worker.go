// Package worker runs one spawned sub-agent: a bounded tool-calling
// conversation over a tool set that cannot spawn further agents, with its
// outcome and every executed tool call written to the registry.
package worker

import (
	"context"
	"errors"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/toolloop"
	"agentcore/pkg/logx"
	"agentcore/pkg/registry"
	"agentcore/pkg/scheduler"
	"agentcore/pkg/tools"
)

// DefaultMaxIterations bounds worker conversations.
const DefaultMaxIterations = 10

// Config tunes worker conversations.
type Config struct {
	Persona       string
	MaxIterations int
	MaxTokens     int
	Temperature   float32
}

// Report is the result a worker stores in the registry when its loop ends
// with a completion or a timeout.
type Report struct {
	Type          toolloop.OutcomeKind `json:"type"`
	Message       string               `json:"message"`
	Iterations    int                  `json:"iterations"`
	ToolCallCount int                  `json:"toolCallCount"`
}

// Result is the envelope returned from Execute.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Result struct {
	Success       bool    `json:"success"`
	AgentID       string  `json:"agentId"`
	Purpose       string  `json:"purpose,omitempty"`
	Report        *Report `json:"result,omitempty"`
	ToolCallCount int     `json:"toolCallsCount"`
	Error         string  `json:"error,omitempty"`
}

// Worker executes one agent's task.
type Worker struct {
	agentID  string
	purpose  string
	agentCtx registry.Context

	client   llm.LLMClient
	tools    *tools.Executor
	registry *registry.Registry
	cfg      Config
	logger   *logx.Logger
}

// New creates a worker for a registered agent. The executor type cannot hold
// the spawn tool, so a worker can never spawn.
func New(agentID, purpose string, agentCtx registry.Context, client llm.LLMClient, exec *tools.Executor, reg *registry.Registry, cfg Config) *Worker {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Worker{
		agentID:  agentID,
		purpose:  purpose,
		agentCtx: agentCtx,
		client:   client,
		tools:    exec,
		registry: reg,
		cfg:      cfg,
		logger:   logx.NewLogger(agentID),
	}
}

// ID returns the agent id.
func (w *Worker) ID() string {
	return w.agentID
}

// Tools returns the definitions the worker offers the engine.
func (w *Worker) Tools() []tools.ToolDefinition {
	return w.tools.Definitions()
}

// SystemPrompt returns the worker's full system prompt.
func (w *Worker) SystemPrompt() string {
	return BuildSystemPrompt(w.cfg.Persona, w.agentID, w.purpose, &w.agentCtx)
}

// Execute runs the conversation and records the outcome. A completion or a
// timeout completes the agent; an engine error fails it.
func (w *Worker) Execute(ctx context.Context) *Result {
	ctx = logx.WithAgentID(ctx, w.agentID)

	if err := w.start(); err != nil {
		w.logger.Error("Cannot start: %v", err)
		return &Result{AgentID: w.agentID, Purpose: w.purpose, Error: err.Error()}
	}
	w.logger.Info("Starting execution")
	w.logger.Info("Purpose: %s", w.purpose)

	recorder := &recordingExecutor{
		inner:    w.tools,
		registry: w.registry,
		agentID:  w.agentID,
		logger:   w.logger,
	}
	loop := toolloop.New(w.client, w.logger)
	out := loop.Run(ctx, &toolloop.Config{
		SystemPrompt:  w.SystemPrompt(),
		InitialPrompt: InitialPrompt,
		Tools:         recorder,
		MaxIterations: w.cfg.MaxIterations,
		MaxTokens:     w.cfg.MaxTokens,
		Temperature:   w.cfg.Temperature,
		AgentID:       w.agentID,
	})

	if out.Kind == toolloop.OutcomeError {
		msg := errorMessage(out.Err)
		w.logger.Error("Failed with error: %s", msg)
		if err := w.registry.Fail(w.agentID, msg); err != nil {
			w.logger.Warn("Could not record failure: %v", err)
		}
		return &Result{AgentID: w.agentID, Purpose: w.purpose, ToolCallCount: recorder.executed, Error: msg}
	}

	report := &Report{
		Type:          out.Kind,
		Message:       out.Message,
		Iterations:    out.Iterations,
		ToolCallCount: recorder.executed,
	}
	if out.Kind == toolloop.OutcomeTimeout {
		report.Message = "Maximum iterations reached"
	}
	if err := w.registry.Complete(w.agentID, report); err != nil {
		w.logger.Warn("Could not record completion: %v", err)
	}
	w.logger.Info("Completed (%s), tool calls made: %d", out.Kind, recorder.executed)

	return &Result{
		Success:       true,
		AgentID:       w.agentID,
		Purpose:       w.purpose,
		Report:        report,
		ToolCallCount: recorder.executed,
	}
}

// start moves an Initializing agent to Running. An agent the scheduler has
// already marked Running is taken as is.
func (w *Worker) start() error {
	err := w.registry.MarkRunning(w.agentID)
	if err == nil || !errors.Is(err, registry.ErrInvalidTransition) {
		return err
	}
	if rec, getErr := w.registry.Get(w.agentID); getErr == nil && rec.Status == registry.StatusRunning {
		return nil
	}
	return err
}

func errorMessage(err error) string {
	if err == nil {
		return "conversation ended with an error"
	}
	if errors.Is(err, toolloop.ErrGracefulShutdown) {
		return "interrupted: " + err.Error()
	}
	return err.Error()
}

// Runner builds and executes a Worker for each scheduled request.
type Runner struct {
	Client   llm.LLMClient
	Tools    *tools.Executor
	Registry *registry.Registry
	Config   Config
}

var _ scheduler.Runner = (*Runner)(nil)

// Run implements scheduler.Runner.
func (r *Runner) Run(ctx context.Context, req scheduler.Request) error {
	w := New(req.AgentID, req.Purpose, req.Context, r.Client, r.Tools, r.Registry, r.Config)
	res := w.Execute(ctx)
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

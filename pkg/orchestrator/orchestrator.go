// Package orchestrator runs the root agent: a bounded conversation with the
// full tool set, including spawn_agent, followed by a wait for every agent it
// spawned.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/toolloop"
	"agentcore/pkg/logx"
	"agentcore/pkg/metrics"
	"agentcore/pkg/registry"
	"agentcore/pkg/scheduler"
	"agentcore/pkg/tools"
)

// Defaults.
const (
	DefaultMaxIterations   = 15
	DefaultWaitTimeout     = 120 * time.Second
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultAllPollInterval = time.Second
	DefaultAllWaitTimeout  = 300 * time.Second
)

// State is the orchestrator's phase.
type State string

// Orchestrator states.
const (
	StateIdle              State = "idle"
	StateConversing        State = "conversing"
	StateAwaitingSubagents State = "awaiting_subagents"
	StateCompleted         State = "completed"
	StateTimedOut          State = "timed_out"
	StateFailed            State = "failed"
)

// Config tunes the orchestrator.
type Config struct {
	Persona         string
	MaxIterations   int
	MaxTokens       int
	Temperature     float32
	WaitTimeout     time.Duration
	PollInterval    time.Duration
	AllPollInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.AllPollInterval <= 0 {
		c.AllPollInterval = DefaultAllPollInterval
	}
}

// LoopResult is the orchestrator conversation's own outcome.
type LoopResult struct {
	Type    toolloop.OutcomeKind `json:"type"`
	Message string               `json:"message"`
}

// ToolHistoryEntry is one tool call made by the orchestrator itself.
type ToolHistoryEntry struct {
	Tool      string    `json:"tool"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is returned from Execute. Sub-agent results are always included,
// whatever happened to the others.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Result struct {
	Success           bool               `json:"success"`
	RunID             string             `json:"runId"`
	State             State              `json:"state"`
	Result            *LoopResult        `json:"result,omitempty"`
	Error             string             `json:"error,omitempty"`
	SpawnedAgents     []SpawnedAgent     `json:"spawnedAgents"`
	AgentResults      []AgentResult      `json:"agentResults"`
	ToolHistory       []ToolHistoryEntry `json:"orchestratorToolHistory"`
	ConversationTurns int                `json:"conversationTurns"`
	Iterations        int                `json:"iterations"`
}

// run is the state of one Execute call.
type run struct {
	id          string
	spawned     []SpawnedAgent
	toolHistory []ToolHistoryEntry
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// Orchestrator is the root agent.
type Orchestrator struct {
	client    llm.LLMClient
	tools     *tools.Executor
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	cfg       Config
	recorder  metrics.Recorder
	logger    *logx.Logger

	mu    sync.Mutex
	state State
}

// New creates an orchestrator. exec holds the non-spawn tools it shares with
// workers; spawn_agent is added per run.
func New(client llm.LLMClient, exec *tools.Executor, reg *registry.Registry, sched *scheduler.Scheduler, cfg Config, opts ...Option) *Orchestrator {
	cfg.applyDefaults()
	o := &Orchestrator{
		client:    client,
		tools:     exec,
		registry:  reg,
		scheduler: sched,
		cfg:       cfg,
		recorder:  metrics.Noop{},
		logger:    logx.NewLogger("orchestrator"),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the phase of the current or most recent Execute.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	logx.DebugState(context.Background(), "orchestrator", "state", string(s))
}

// Execute runs the orchestrator conversation for goal, then waits for the
// agents it spawned. Spawned agents run on the scheduler, never here.
func (o *Orchestrator) Execute(ctx context.Context, goal, projectPath string) *Result {
	r := &run{id: uuid.NewString()}
	ctx = logx.WithAgentID(ctx, "orchestrator")
	o.logger.Info("▶️  Run %s started for project %s", r.id, projectPath)

	exec := &toolset{
		base: o.tools,
		spawnFn: func(_ context.Context, purpose string, agentCtx registry.Context) tools.Result {
			return o.spawn(r, purpose, agentCtx)
		},
	}

	o.setState(StateConversing)
	loop := toolloop.New(o.client, o.logger)
	out := loop.Run(ctx, &toolloop.Config{
		SystemPrompt:  buildSystemPrompt(o.cfg.Persona, exec.Definitions()),
		InitialPrompt: buildPrompt(goal, projectPath),
		Tools:         exec,
		MaxIterations: o.cfg.MaxIterations,
		MaxTokens:     o.cfg.MaxTokens,
		Temperature:   o.cfg.Temperature,
		AgentID:       "orchestrator",
		OnToolResult: func(_ context.Context, inv toolloop.Invocation) {
			r.toolHistory = append(r.toolHistory, ToolHistoryEntry{
				Tool:      inv.Call.Name,
				Success:   inv.Result.Success,
				Timestamp: inv.Timestamp,
			})
		},
	})

	res := &Result{
		Success:           out.Kind != toolloop.OutcomeError,
		RunID:             r.id,
		SpawnedAgents:     append([]SpawnedAgent{}, r.spawned...),
		ToolHistory:       append([]ToolHistoryEntry{}, r.toolHistory...),
		ConversationTurns: out.Turns(),
		Iterations:        out.Iterations,
	}
	switch out.Kind {
	case toolloop.OutcomeCompletion:
		o.logger.Info("No more tool calls. Task complete.")
		res.Result = &LoopResult{Type: out.Kind, Message: out.Message}
	case toolloop.OutcomeTimeout:
		res.Result = &LoopResult{Type: out.Kind, Message: "Maximum iterations reached"}
	default:
		res.Error = errorText(out.Err)
		o.logger.Error("Conversation failed: %s", res.Error)
	}

	o.setState(StateAwaitingSubagents)
	res.AgentResults = o.waitForSpawned(ctx, r.spawned, o.cfg.WaitTimeout)

	res.State = finalState(out.Kind, res.AgentResults)
	o.setState(res.State)
	o.recorder.RunFinished(out.Kind.String(), len(r.spawned))
	o.logger.Info("⏹  Run %s finished: %s, %d agents spawned", r.id, res.State, len(r.spawned))
	return res
}

func finalState(kind toolloop.OutcomeKind, agents []AgentResult) State {
	switch kind {
	case toolloop.OutcomeError:
		return StateFailed
	case toolloop.OutcomeTimeout:
		return StateTimedOut
	}
	for i := range agents {
		if agents[i].TimedOut {
			return StateTimedOut
		}
	}
	return StateCompleted
}

func errorText(err error) string {
	if err == nil {
		return "orchestrator conversation failed"
	}
	return err.Error()
}

package tools

import (
	"context"
	"fmt"
	"sync"
)

// Executor validates and runs a fixed set of tools by name.
// It never holds the spawn capability: registering ToolSpawnAgent fails.
type Executor struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewExecutor creates an executor over the given tools.
func NewExecutor(ts ...Tool) (*Executor, error) {
	e := &Executor{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		if err := e.Register(t); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Register adds a tool. Names must be unique.
func (e *Executor) Register(t Tool) error {
	name := t.Name()
	if name == ToolSpawnAgent {
		return fmt.Errorf("tool name %q is reserved for the orchestrator", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	e.tools[name] = t
	e.order = append(e.order, name)
	return nil
}

// Definitions returns tool definitions in registration order.
func (e *Executor) Definitions() []ToolDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(e.order))
	for _, name := range e.order {
		defs = append(defs, e.tools[name].Definition())
	}
	return defs
}

// Names returns registered tool names in registration order.
func (e *Executor) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.order...)
}

func (e *Executor) lookup(name string) (Tool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tools[name]
	return t, ok
}

// Validate checks params against the named tool's declared schema.
func (e *Executor) Validate(name string, params map[string]any) Validation {
	t, ok := e.lookup(name)
	if !ok {
		return Validation{Valid: false, Errors: []string{fmt.Sprintf("Unknown tool: %s", name)}}
	}
	def := t.Definition()
	return ValidateParams(&def.InputSchema, params)
}

// Execute runs the named tool. Unknown names, tool errors and tool panics
// all come back as failed Results.
func (e *Executor) Execute(ctx context.Context, name string, params map[string]any) Result {
	t, ok := e.lookup(name)
	if !ok {
		return Failure(fmt.Sprintf("Unknown tool: %s", name))
	}
	return Run(ctx, t, params)
}

// Run executes a single tool with panic safety.
func Run(ctx context.Context, t Tool, params map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failure(fmt.Sprintf("tool %s panicked: %v", t.Name(), r))
		}
	}()

	payload, err := t.Exec(ctx, params)
	if err != nil {
		return Failure(err.Error())
	}
	return Success(payload)
}

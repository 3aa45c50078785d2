package worker

import (
	"context"
	"maps"
	"time"

	"agentcore/pkg/logx"
	"agentcore/pkg/registry"
	"agentcore/pkg/tools"
)

// recordingExecutor mirrors every executed call into the registry, so the
// history outlives the worker's private transcript.
type recordingExecutor struct {
	inner    *tools.Executor
	registry *registry.Registry
	agentID  string
	logger   *logx.Logger
	executed int
}

func (r *recordingExecutor) Definitions() []tools.ToolDefinition {
	return r.inner.Definitions()
}

func (r *recordingExecutor) Validate(name string, params map[string]any) tools.Validation {
	return r.inner.Validate(name, params)
}

func (r *recordingExecutor) Execute(ctx context.Context, name string, params map[string]any) tools.Result {
	result := r.inner.Execute(ctx, name, params)
	r.executed++

	call := registry.ToolCallRecord{
		Tool:       name,
		Parameters: maps.Clone(params),
		Result:     result,
		Timestamp:  time.Now(),
	}
	if err := r.registry.RecordToolCall(r.agentID, call); err != nil {
		r.logger.Warn("Could not record %s call: %v", name, err)
	}
	return result
}

package orchestrator

import (
	"context"
	"fmt"

	"agentcore/pkg/registry"
	"agentcore/pkg/tools"
)

// spawnDefinition is the only tool definition that grants spawning.
// It lives here, outside pkg/tools, so no worker executor can ever hold it.
func spawnDefinition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: tools.ToolSpawnAgent,
		Description: "Spawn a specialized sub-agent to handle one focused task. The agent is queued and runs " +
			"in the background; its result is collected after you finish.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"purpose": {
					Type:        "string",
					Description: "What the sub-agent must accomplish, stated precisely",
				},
				"context": {
					Type:        "object",
					Description: "Optional context handed to the sub-agent",
					Properties: map[string]*tools.Property{
						"files": {
							Type:        "array",
							Description: "Files the sub-agent should focus on",
							Items:       &tools.Property{Type: "string"},
						},
						"instructions": {
							Type:        "string",
							Description: "Additional instructions",
						},
						"data": {
							Type:        "object",
							Description: "Arbitrary structured data",
						},
					},
				},
			},
			Required: []string{"purpose"},
		},
	}
}

// SpawnedAgent is a spawn made during one Execute.
type SpawnedAgent struct {
	AgentID string `json:"agentId"`
	Purpose string `json:"purpose"`
}

// toolset is the orchestrator's full tool set: the shared workspace tools
// plus spawn_agent bound to one run.
type toolset struct {
	base    *tools.Executor
	spawnFn func(ctx context.Context, purpose string, agentCtx registry.Context) tools.Result
}

func (t *toolset) Definitions() []tools.ToolDefinition {
	defs := []tools.ToolDefinition{spawnDefinition()}
	if t.base != nil {
		defs = append(defs, t.base.Definitions()...)
	}
	return defs
}

func (t *toolset) Validate(name string, params map[string]any) tools.Validation {
	if name == tools.ToolSpawnAgent {
		def := spawnDefinition()
		v := tools.ValidateParams(&def.InputSchema, params)
		if v.Valid {
			if purpose, _ := params["purpose"].(string); purpose == "" {
				return tools.Validation{Valid: false, Errors: []string{"Parameter purpose must not be empty"}}
			}
		}
		return v
	}
	if t.base == nil {
		return tools.Validation{Valid: false, Errors: []string{fmt.Sprintf("Unknown tool: %s", name)}}
	}
	return t.base.Validate(name, params)
}

func (t *toolset) Execute(ctx context.Context, name string, params map[string]any) tools.Result {
	if name == tools.ToolSpawnAgent {
		purpose, _ := params["purpose"].(string)
		return t.spawnFn(ctx, purpose, parseContext(params["context"]))
	}
	if t.base == nil {
		return tools.Failure(fmt.Sprintf("Unknown tool: %s", name))
	}
	return t.base.Execute(ctx, name, params)
}

// parseContext converts the validated spawn context parameter.
func parseContext(raw any) registry.Context {
	var c registry.Context
	m, ok := raw.(map[string]any)
	if !ok {
		return c
	}
	if files, ok := m["files"].([]any); ok {
		for _, f := range files {
			if s, ok := f.(string); ok {
				c.Files = append(c.Files, s)
			}
		}
	}
	if files, ok := m["files"].([]string); ok {
		c.Files = append(c.Files, files...)
	}
	c.Instructions, _ = m["instructions"].(string)
	if data, ok := m["data"].(map[string]any); ok {
		c.Data = data
	}
	return c
}

// spawn registers the agent and hands it to the scheduler. It never runs the worker.
func (o *Orchestrator) spawn(r *run, purpose string, agentCtx registry.Context) tools.Result {
	id := o.registry.Register(purpose, agentCtx)
	pos := o.scheduler.Enqueue(id, purpose, agentCtx)
	r.spawned = append(r.spawned, SpawnedAgent{AgentID: id, Purpose: purpose})

	o.logger.Info("🧬 Spawned %s: %s", id, purpose)
	return tools.Success(map[string]any{
		"agentId": id,
		"purpose": purpose,
		"status":  "queued",
		"message": fmt.Sprintf("Agent %s spawned and queued for execution at position %d. "+
			"Its result will be collected when you finish.", id, pos),
	})
}

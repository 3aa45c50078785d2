package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AgentContext carries the settings a tool factory needs.
type AgentContext struct {
	Workspace Workspace
	ReadOnly  bool
}

// ToolFactory creates a tool instance configured for a specific agent context.
type ToolFactory func(ctx AgentContext) (Tool, error)

// ToolMeta contains metadata about a tool for documentation and discovery.
type ToolMeta struct {
	Name        string
	Description string
	Mutating    bool
}

type toolDescriptor struct {
	meta    ToolMeta
	factory ToolFactory
}

// immutableRegistry is the process-wide catalogue of built-in tool factories.
type immutableRegistry struct {
	mu     sync.RWMutex
	sealed bool
	tools  map[string]toolDescriptor
}

//nolint:gochecknoglobals // Factory pattern requires global registry
var globalRegistry = &immutableRegistry{
	tools: make(map[string]toolDescriptor),
}

func init() { //nolint:gochecknoinits // built-in tool registration
	Register(ToolFileRead, func(ctx AgentContext) (Tool, error) {
		return NewFileReadTool(ctx.Workspace), nil
	}, &ToolMeta{Name: ToolFileRead, Description: "Read a project file"})

	Register(ToolListDirectory, func(ctx AgentContext) (Tool, error) {
		return NewListDirectoryTool(ctx.Workspace, 0), nil
	}, &ToolMeta{Name: ToolListDirectory, Description: "List project files"})

	Register(ToolFileWrite, func(ctx AgentContext) (Tool, error) {
		return NewFileWriteTool(ctx.Workspace), nil
	}, &ToolMeta{Name: ToolFileWrite, Description: "Create a new project file", Mutating: true})
}

// Register adds a tool factory to the global registry.
// Panics if called after the registry is sealed or with the reserved spawn name.
func Register(name string, factory ToolFactory, meta *ToolMeta) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if globalRegistry.sealed {
		panic(fmt.Sprintf("tool registry sealed - cannot register tool '%s'", name))
	}
	if name == ToolSpawnAgent {
		panic(fmt.Sprintf("tool name '%s' is reserved", name))
	}
	globalRegistry.tools[name] = toolDescriptor{meta: *meta, factory: factory}
}

// Seal prevents further tool registrations.
func Seal() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.sealed = true
}

// ListTools returns metadata for all registered tools, sorted by name.
func ListTools() []ToolMeta {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	result := make([]ToolMeta, 0, len(globalRegistry.tools))
	for name := range globalRegistry.tools {
		result = append(result, globalRegistry.tools[name].meta)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// NewProvider builds an Executor holding the allowed registered tools.
// Mutating tools are skipped when ctx.ReadOnly is set. Seals the registry on first use.
func NewProvider(ctx AgentContext, allowedTools []string) (*Executor, error) {
	Seal()

	exec, err := NewExecutor()
	if err != nil {
		return nil, err
	}
	for _, name := range allowedTools {
		globalRegistry.mu.RLock()
		desc, exists := globalRegistry.tools[name]
		globalRegistry.mu.RUnlock()

		if !exists {
			return nil, fmt.Errorf("tool '%s' not registered", name)
		}
		if ctx.ReadOnly && desc.meta.Mutating {
			continue
		}
		tool, err := desc.factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create tool '%s': %w", name, err)
		}
		if err := exec.Register(tool); err != nil {
			return nil, err
		}
	}
	return exec, nil
}

// GenerateToolDocumentation renders a markdown list of tool definitions for prompts.
func GenerateToolDocumentation(defs []ToolDefinition) string {
	if len(defs) == 0 {
		return "No tools available"
	}

	var doc strings.Builder
	doc.WriteString("## Available Tools\n\n")
	for i := range defs {
		doc.WriteString(fmt.Sprintf("- **%s** - %s\n", defs[i].Name, defs[i].Description))
	}
	return doc.String()
}

package tools

// Tool name constants.
const (
	// ToolSpawnAgent is reserved for the orchestrator. An Executor refuses to register it.
	ToolSpawnAgent = "spawn_agent"

	// Workspace tools.
	ToolFileRead      = "file_read"
	ToolFileWrite     = "file_write"
	ToolListDirectory = "list_directory"
)

//nolint:gochecknoglobals // tool sets referenced by config validation
var (
	// WorkspaceReadTools never modify the workspace.
	WorkspaceReadTools = []string{ToolFileRead, ToolListDirectory}

	// WorkspaceTools is the full built-in set.
	WorkspaceTools = []string{ToolFileRead, ToolListDirectory, ToolFileWrite}
)

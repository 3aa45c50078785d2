package orchestrator

import (
	"fmt"
	"strings"

	"agentcore/pkg/tools"
)

// DefaultPersona opens the orchestrator's system prompt unless configured otherwise.
const DefaultPersona = `You are the orchestrator of a team of code-analysis agents.
You receive a developer's goal for a software project, investigate the project
yourself, and delegate focused sub-tasks to specialized sub-agents when that
helps. Sub-agents cannot spawn agents of their own. Their results are gathered
for you after your conversation ends, so describe each delegated task completely.`

// buildSystemPrompt appends the tool catalogue to the persona.
func buildSystemPrompt(persona string, defs []tools.ToolDefinition) string {
	if persona == "" {
		persona = DefaultPersona
	}
	return strings.TrimSpace(persona) + "\n\n" + tools.GenerateToolDocumentation(defs)
}

// buildPrompt is the first user turn: where the project is and what the developer wants.
func buildPrompt(goal, projectPath string) string {
	var b strings.Builder
	b.WriteString("## Project Context\n\n")
	fmt.Fprintf(&b, "Project Path: %s\n\n", projectPath)
	b.WriteString("## Developer's Goal\n\n")
	b.WriteString(strings.TrimSpace(goal))
	b.WriteString("\n\n## Instructions\n\n")
	b.WriteString("1. Explore the project structure to understand what you are working with.\n")
	b.WriteString("2. Break the goal into focused, independent sub-tasks.\n")
	fmt.Fprintf(&b, "3. Use %s for each sub-task that deserves a dedicated agent. Give it a precise purpose and the files to focus on.\n", tools.ToolSpawnAgent)
	b.WriteString("4. Handle small sub-tasks yourself with the file tools.\n")
	b.WriteString("5. Finish with a summary of what you found and what you delegated.\n")
	return b.String()
}

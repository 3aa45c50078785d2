package worker

import (
	"encoding/json"
	"fmt"
	"strings"

	"agentcore/pkg/registry"
)

// DefaultPersona opens every worker system prompt unless configured otherwise.
const DefaultPersona = `You are a focused code-analysis sub-agent working for an orchestrator.
You were spawned to carry out exactly one task inside a software project.
Investigate with the tools you have, keep your reasoning grounded in what the
files actually contain, and finish with a concise, structured report.`

// InitialPrompt is the first user turn of every worker conversation.
const InitialPrompt = "Begin your task now. Analyze the situation, determine what tools you need, and execute your purpose systematically."

// BuildSystemPrompt assembles the persona, the assignment and its optional context.
func BuildSystemPrompt(persona, agentID, purpose string, agentCtx *registry.Context) string {
	if persona == "" {
		persona = DefaultPersona
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(persona))
	b.WriteString("\n\n---\n\n## Your Assignment\n\n")
	fmt.Fprintf(&b, "Agent ID: %s\n", agentID)
	fmt.Fprintf(&b, "Purpose: %s\n", purpose)

	if agentCtx != nil {
		if agentCtx.Instructions != "" {
			fmt.Fprintf(&b, "\n### Additional Instructions:\n%s\n", agentCtx.Instructions)
		}
		if len(agentCtx.Files) > 0 {
			b.WriteString("\n### Files to Focus On:\n")
			for _, f := range agentCtx.Files {
				fmt.Fprintf(&b, "- %s\n", f)
			}
		}
		if len(agentCtx.Data) > 0 {
			data, err := json.MarshalIndent(agentCtx.Data, "", "  ")
			if err != nil {
				data = []byte(fmt.Sprintf("%v", agentCtx.Data))
			}
			fmt.Fprintf(&b, "\n### Context Data:\n%s\n", data)
		}
	}

	b.WriteString(`
---

**Remember:**
- Stay focused on your assigned purpose
- Use tools precisely and only when needed
- Never overwrite entire files
- Return clear, structured results to the Orchestrator
`)
	return b.String()
}

package toolloop

import (
	"fmt"

	"agentcore/pkg/agent/llm"
)

// OutcomeKind categorizes how a loop run ended.
type OutcomeKind int

const (
	// OutcomeCompletion indicates the engine produced a final response without tool calls.
	// Message holds its text.
	OutcomeCompletion OutcomeKind = iota

	// OutcomeTimeout indicates MaxIterations engine round trips happened without a final response.
	// History holds the partial transcript.
	OutcomeTimeout

	// OutcomeError indicates the engine failed or returned an empty/malformed response.
	// Err holds the cause.
	OutcomeError
)

// String returns the wire name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompletion:
		return "completion"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// MarshalText lets outcome kinds appear by name in JSON results.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the terminal result of one Run.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Outcome struct {
	Kind OutcomeKind

	// Message is the engine's final text. Set only for OutcomeCompletion.
	Message string

	// History is the full transcript, including the seed prompts.
	History []llm.CompletionMessage

	// Iterations counts engine round trips made.
	Iterations int

	// ToolCalls counts tool invocations dispatched, including synthesized failures.
	ToolCalls int

	Err error
}

// IsCompletion reports whether the engine finished with a final response.
func (o *Outcome) IsCompletion() bool {
	return o.Kind == OutcomeCompletion
}

// Turns returns the number of transcript entries.
func (o *Outcome) Turns() int {
	return len(o.History)
}

package toolloop

import "errors"

var (
	// ErrEmptyResponse indicates the engine answered with neither text nor tool calls,
	// or with a tool call that carries no tool name.
	ErrEmptyResponse = errors.New("empty or malformed engine response")

	// ErrIterationLimit is attached to timeout outcomes.
	// Reaching the cap is a defined terminal state, not a fault.
	ErrIterationLimit = errors.New("maximum tool iterations reached")

	// ErrGracefulShutdown indicates the loop was interrupted by context cancellation.
	// Callers should record what they have and exit cleanly.
	ErrGracefulShutdown = errors.New("graceful shutdown requested")
)

package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no agent has the requested id.
	ErrNotFound = errors.New("agent not found")

	// ErrNotReady indicates the agent has no result because it has not completed.
	ErrNotReady = errors.New("agent not ready")

	// ErrInvalidTransition indicates a status change that would skip or regress a state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error carries the agent id and status behind a registry failure.
// Use errors.Is against the sentinels above.
type Error struct {
	Err    error
	ID     string
	Status Status
	Target Status
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return fmt.Sprintf("Agent %s not found", e.ID)
	case errors.Is(e.Err, ErrNotReady):
		return fmt.Sprintf("Agent %s has not completed yet. Status: %s", e.ID, e.Status)
	case errors.Is(e.Err, ErrInvalidTransition):
		return fmt.Sprintf("Agent %s cannot move from %s to %s", e.ID, e.Status, e.Target)
	default:
		return fmt.Sprintf("Agent %s: %v", e.ID, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func notFound(id string) error {
	return &Error{ID: id, Err: ErrNotFound}
}

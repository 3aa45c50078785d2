package scheduler

import "fmt"

// TaskFailure is a panic that escaped a worker, caught at the scheduler boundary.
type TaskFailure struct {
	Panic   any
	AgentID string
}

func (e *TaskFailure) Error() string {
	return fmt.Sprintf("agent %s crashed: %v", e.AgentID, e.Panic)
}

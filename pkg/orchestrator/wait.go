package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agentcore/pkg/registry"
)

// Wait outcome labels.
const (
	waitCompleted = "completed"
	waitFailed    = "failed"
	waitNotFound  = "not_found"
	waitTimeout   = "timeout"
	waitCanceled  = "canceled"
	waitNotRun    = "not_started"
)

// AgentResult is what a wait learned about one agent.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type AgentResult struct {
	AgentID       string                    `json:"agentId"`
	Purpose       string                    `json:"purpose,omitempty"`
	Success       bool                      `json:"success"`
	Result        any                       `json:"result,omitempty"`
	Error         string                    `json:"error,omitempty"`
	TimedOut      bool                      `json:"timedOut,omitempty"`
	ExecutionTime time.Duration             `json:"-"`
	ExecutionMs   int64                     `json:"executionTime,omitempty"`
	ToolCallCount int                       `json:"toolCallCount,omitempty"`
	ToolHistory   []registry.ToolCallRecord `json:"toolHistory,omitempty"`
}

// AllAgentsResult is the outcome of WaitForAllAgents.
type AllAgentsResult struct {
	Success bool               `json:"success"`
	Agents  []*registry.Record `json:"agents"`
	Error   string             `json:"error,omitempty"`
}

// WaitForAgent polls the registry until the agent is terminal or timeout elapses.
// It never returns an error: not found, failed and timed out agents all come
// back as unsuccessful results.
func (o *Orchestrator) WaitForAgent(ctx context.Context, agentID string, timeout time.Duration) AgentResult {
	res, outcome := o.awaitAgent(ctx, agentID, "", time.Now().Add(timeout), false)
	o.recorder.WaitFinished(outcome)
	return res
}

// waitForSpawned waits on each agent in spawn order under one shared deadline.
// A failure or timeout of one agent never stops the wait for the rest.
func (o *Orchestrator) waitForSpawned(ctx context.Context, spawned []SpawnedAgent, timeout time.Duration) []AgentResult {
	results := make([]AgentResult, 0, len(spawned))
	if len(spawned) == 0 {
		return results
	}

	o.logger.Info("Waiting for %d spawned agent(s) to complete...", len(spawned))
	deadline := time.Now().Add(timeout)
	completed := 0
	for _, s := range spawned {
		res, outcome := o.awaitAgent(ctx, s.AgentID, s.Purpose, deadline, true)
		o.recorder.WaitFinished(outcome)
		switch outcome {
		case waitCompleted:
			completed++
			o.logger.Info("✓ %s completed", s.AgentID)
		case waitTimeout:
			o.logger.Warn("⏱ %s timed out", s.AgentID)
		default:
			o.logger.Warn("✗ %s: %s", s.AgentID, res.Error)
		}
		results = append(results, res)
	}
	o.logger.Info("All spawned agents processed. Completed: %d/%d", completed, len(spawned))
	return results
}

// awaitAgent checks the agent once, then again on every poll tick until the
// deadline. An agent that is already terminal is reported even if the
// deadline has passed. With scheduled set, an agent still Initializing whose
// request has left the queue without starting is reported at once.
func (o *Orchestrator) awaitAgent(ctx context.Context, agentID, purpose string, deadline time.Time, scheduled bool) (AgentResult, string) {
	if res, outcome, done := o.checkAgent(agentID, purpose, scheduled); done {
		return res, outcome
	}

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-ticker.C:
		case <-timer.C:
			if res, outcome, done := o.checkAgent(agentID, purpose, scheduled); done {
				return res, outcome
			}
			return AgentResult{
				AgentID:  agentID,
				Purpose:  purpose,
				Error:    fmt.Sprintf("Timeout waiting for agent %s", agentID),
				TimedOut: true,
			}, waitTimeout
		case <-ctx.Done():
			return AgentResult{
				AgentID: agentID,
				Purpose: purpose,
				Error:   fmt.Sprintf("Stopped waiting for agent %s: %v", agentID, ctx.Err()),
			}, waitCanceled
		}

		if res, outcome, done := o.checkAgent(agentID, purpose, scheduled); done {
			return res, outcome
		}
	}
}

func (o *Orchestrator) checkAgent(agentID, purpose string, scheduled bool) (AgentResult, string, bool) {
	// Read the queue before the registry: the scheduler marks a request
	// Running before it leaves the queue.
	queued := scheduled && o.scheduler.IsQueued(agentID)
	result, err := o.registry.GetResult(agentID)
	switch {
	case err == nil:
		res := AgentResult{AgentID: agentID, Purpose: purpose, Success: true, Result: result}
		if rec, getErr := o.registry.Get(agentID); getErr == nil {
			if res.Purpose == "" {
				res.Purpose = rec.Purpose
			}
			res.ExecutionTime = rec.ExecutionTime()
			res.ExecutionMs = res.ExecutionTime.Milliseconds()
			res.ToolCallCount = len(rec.ToolCalls)
			res.ToolHistory = rec.ToolCalls
		}
		return res, waitCompleted, true

	case errors.Is(err, registry.ErrNotFound):
		return AgentResult{
			AgentID: agentID,
			Purpose: purpose,
			Error:   fmt.Sprintf("Agent %s not found", agentID),
		}, waitNotFound, true

	case errors.Is(err, registry.ErrNotReady):
		rec, getErr := o.registry.Get(agentID)
		if getErr != nil {
			break
		}
		switch {
		case rec.Status == registry.StatusFailed:
			return AgentResult{
				AgentID: agentID,
				Purpose: purpose,
				Error:   fmt.Sprintf("Agent %s failed: %s", agentID, rec.Error),
			}, waitFailed, true
		case scheduled && !queued && rec.Status == registry.StatusInitializing:
			return AgentResult{
				AgentID: agentID,
				Purpose: purpose,
				Error:   fmt.Sprintf("Agent %s was cancelled before it started", agentID),
			}, waitNotRun, true
		}
	}
	return AgentResult{}, "", false
}

// WaitForAllAgents polls until the scheduler is idle and no agent is running,
// then returns every record. On timeout the partial list is returned with an error.
// Agents whose spawn was cancelled stay Initializing and do not hold up the wait.
// A non-positive timeout means DefaultAllWaitTimeout.
func (o *Orchestrator) WaitForAllAgents(ctx context.Context, timeout time.Duration) *AllAgentsResult {
	if timeout <= 0 {
		timeout = DefaultAllWaitTimeout
	}
	ticker := time.NewTicker(o.cfg.AllPollInterval)
	defer ticker.Stop()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if o.settled() {
			return &AllAgentsResult{Success: true, Agents: o.registry.List()}
		}
		select {
		case <-ticker.C:
		case <-timer.C:
			if o.settled() {
				return &AllAgentsResult{Success: true, Agents: o.registry.List()}
			}
			return &AllAgentsResult{
				Agents: o.registry.List(),
				Error:  "Timeout waiting for all agents to complete",
			}
		case <-ctx.Done():
			return &AllAgentsResult{
				Agents: o.registry.List(),
				Error:  fmt.Sprintf("Stopped waiting for agents: %v", ctx.Err()),
			}
		}
	}
}

func (o *Orchestrator) settled() bool {
	st := o.scheduler.Status()
	if st.Queued > 0 || st.InFlight > 0 {
		return false
	}
	return len(o.registry.FilterByStatus(registry.StatusRunning)) == 0
}

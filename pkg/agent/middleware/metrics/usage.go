package metrics

import (
	"sort"
	"sync"
	"time"
)

// AgentUsage is the aggregated engine usage of one agent.
//
//nolint:govet
type AgentUsage struct {
	AgentID          string    `json:"agent_id"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	RequestCount     int64     `json:"request_count"`
	FailedCount      int64     `json:"failed_count"`
	LastUpdated      time.Time `json:"last_updated"`
}

// UsageRecorder aggregates usage per agent in memory.
type UsageRecorder struct {
	mu     sync.RWMutex
	agents map[string]*AgentUsage
}

// NewUsageRecorder creates an empty usage recorder.
func NewUsageRecorder() *UsageRecorder {
	return &UsageRecorder{agents: make(map[string]*AgentUsage)}
}

// ObserveRequest implements Recorder.
func (r *UsageRecorder) ObserveRequest(_, agentID string, promptTokens, completionTokens int, success bool, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.agents[agentID]
	if !ok {
		u = &AgentUsage{AgentID: agentID}
		r.agents[agentID] = u
	}
	u.RequestCount++
	if !success {
		u.FailedCount++
	}
	u.PromptTokens += int64(promptTokens)
	u.CompletionTokens += int64(completionTokens)
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	u.LastUpdated = time.Now()
}

// Usage returns a copy of one agent's usage, or nil.
func (r *UsageRecorder) Usage(agentID string) *AgentUsage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.agents[agentID]; ok {
		cp := *u
		return &cp
	}
	return nil
}

// All returns copies of every agent's usage sorted by agent id.
func (r *UsageRecorder) All() []AgentUsage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentUsage, 0, len(r.agents))
	for _, u := range r.agents {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// Reset clears all usage.
func (r *UsageRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*AgentUsage)
}

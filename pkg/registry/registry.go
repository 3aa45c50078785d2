// Package registry holds the shared record of every spawned agent: its status,
// result or error, and the ordered history of tools it called.
//
// Records are owned by the Registry. Callers only ever see copies, and every
// mutation goes through a Registry method under a single lock.
package registry

import (
	"fmt"
	"sync"
	"time"

	"agentcore/pkg/tools"
)

// Status is an agent's lifecycle state.
type Status string

// Agent statuses. Status only advances Initializing -> Running -> Completed|Failed.
const (
	StatusInitializing Status = "initializing"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Statuses lists every status in lifecycle order.
//
//nolint:gochecknoglobals // read-only lookup table
var Statuses = []Status{StatusInitializing, StatusRunning, StatusCompleted, StatusFailed}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Context is the optional payload a spawner hands to an agent.
type Context struct {
	Files        []string       `json:"files,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// IsEmpty reports whether no context was given.
func (c *Context) IsEmpty() bool {
	return len(c.Files) == 0 && c.Instructions == "" && len(c.Data) == 0
}

// ToolCallRecord is one executed tool call.
type ToolCallRecord struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Result     tools.Result   `json:"result"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Record is a snapshot of one agent.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Record struct {
	ID          string           `json:"id"`
	Purpose     string           `json:"purpose"`
	Context     Context          `json:"context"`
	Status      Status           `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Result      any              `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	ToolCalls   []ToolCallRecord `json:"toolCallHistory"`
}

// ExecutionTime is CompletedAt - StartedAt, or zero while the agent is not terminal.
func (r *Record) ExecutionTime() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

func (r *Record) clone() *Record {
	cp := *r
	cp.Context.Files = append([]string(nil), r.Context.Files...)
	if r.Context.Data != nil {
		cp.Context.Data = make(map[string]any, len(r.Context.Data))
		for k, v := range r.Context.Data {
			cp.Context.Data[k] = v
		}
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	cp.ToolCalls = append([]ToolCallRecord(nil), r.ToolCalls...)
	return &cp
}

// StatusView is the lightweight status of one agent, without its history.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type StatusView struct {
	ID            string     `json:"id"`
	Purpose       string     `json:"purpose"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	Error         string     `json:"error,omitempty"`
	ToolCallCount int        `json:"toolCallCount"`
}

// Summary aggregates the registry contents.
type Summary struct {
	Total                int            `json:"total"`
	ByStatus             map[Status]int `json:"byStatus"`
	TotalToolCalls       int            `json:"totalToolCalls"`
	AverageExecutionTime time.Duration  `json:"-"`
	AverageExecutionMs   int64          `json:"averageExecutionTime"`
}

// Observer is notified of every status an agent enters, including the initial one.
type Observer interface {
	AgentTransitioned(status string)
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry is the concurrency-safe store of agent records.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*Record
	order    []string
	next     int
	observer Observer
	now      func() time.Time
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		records: make(map[string]*Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register allocates the next id and stores an Initializing record.
func (r *Registry) Register(purpose string, agentCtx Context) string {
	r.mu.Lock()
	id := fmt.Sprintf("agent_%d", r.next)
	r.next++
	rec := &Record{
		ID:        id,
		Purpose:   purpose,
		Context:   agentCtx,
		Status:    StatusInitializing,
		CreatedAt: r.now(),
	}
	r.records[id] = rec.clone()
	r.order = append(r.order, id)
	r.mu.Unlock()

	r.notify(StatusInitializing)
	return id
}

// MarkRunning moves an Initializing agent to Running.
func (r *Registry) MarkRunning(id string) error {
	return r.transition(id, StatusInitializing, StatusRunning, func(rec *Record) {
		t := r.now()
		rec.StartedAt = &t
	})
}

// Complete moves a Running agent to Completed with its result.
func (r *Registry) Complete(id string, result any) error {
	return r.transition(id, StatusRunning, StatusCompleted, func(rec *Record) {
		t := r.now()
		rec.CompletedAt = &t
		rec.Result = result
	})
}

// Fail moves a Running agent to Failed with an error message.
func (r *Registry) Fail(id, message string) error {
	return r.transition(id, StatusRunning, StatusFailed, func(rec *Record) {
		t := r.now()
		rec.CompletedAt = &t
		rec.Error = message
	})
}

func (r *Registry) transition(id string, from, to Status, apply func(*Record)) error {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return notFound(id)
	}
	if rec.Status != from {
		current := rec.Status
		r.mu.Unlock()
		return &Error{ID: id, Status: current, Target: to, Err: ErrInvalidTransition}
	}
	rec.Status = to
	apply(rec)
	r.mu.Unlock()

	r.notify(to)
	return nil
}

func (r *Registry) notify(s Status) {
	if r.observer != nil {
		r.observer.AgentTransitioned(string(s))
	}
}

// RecordToolCall appends to an agent's tool history.
func (r *Registry) RecordToolCall(id string, call ToolCallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return notFound(id)
	}
	if call.Timestamp.IsZero() {
		call.Timestamp = r.now()
	}
	rec.ToolCalls = append(rec.ToolCalls, call)
	return nil
}

// Get returns a copy of the agent's record.
func (r *Registry) Get(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec.clone(), nil
}

// Status returns the agent's status without its history.
func (r *Registry) Status(id string) (*StatusView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, notFound(id)
	}
	c := rec.clone()
	return &StatusView{
		ID:            c.ID,
		Purpose:       c.Purpose,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
		StartedAt:     c.StartedAt,
		CompletedAt:   c.CompletedAt,
		Error:         c.Error,
		ToolCallCount: len(c.ToolCalls),
	}, nil
}

// GetResult returns the result of a Completed agent. Any other status is ErrNotReady.
func (r *Registry) GetResult(id string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, notFound(id)
	}
	if rec.Status != StatusCompleted {
		return nil, &Error{ID: id, Status: rec.Status, Err: ErrNotReady}
	}
	return rec.Result, nil
}

// ToolHistory returns the agent's tool calls in execution order.
func (r *Registry) ToolHistory(id string) ([]ToolCallRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return append([]ToolCallRecord(nil), rec.ToolCalls...), nil
}

// List returns copies of all records in registration order.
func (r *Registry) List() []*Record {
	return r.filter(func(*Record) bool { return true })
}

// FilterByStatus returns copies of the records in the given status, in registration order.
func (r *Registry) FilterByStatus(s Status) []*Record {
	return r.filter(func(rec *Record) bool { return rec.Status == s })
}

func (r *Registry) filter(keep func(*Record) bool) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(r.order))
	for _, id := range r.order {
		if rec := r.records[id]; keep(rec) {
			out = append(out, rec.clone())
		}
	}
	return out
}

// Active counts agents that are not yet terminal.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.records {
		if !rec.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// Summary counts agents by status and averages the execution time of terminal agents.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{ByStatus: make(map[Status]int, len(Statuses))}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}

	var total time.Duration
	timed := 0
	for _, rec := range r.records {
		s.Total++
		s.ByStatus[rec.Status]++
		s.TotalToolCalls += len(rec.ToolCalls)
		if rec.Status.IsTerminal() && rec.StartedAt != nil && rec.CompletedAt != nil {
			total += rec.ExecutionTime()
			timed++
		}
	}
	if timed > 0 {
		s.AverageExecutionTime = total / time.Duration(timed)
		s.AverageExecutionMs = s.AverageExecutionTime.Milliseconds()
	}
	return s
}

// ClearCompleted removes Completed and Failed agents and returns how many were removed.
func (r *Registry) ClearCompleted() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.order[:0]
	removed := 0
	for _, id := range r.order {
		if r.records[id].Status.IsTerminal() {
			delete(r.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

// ClearAll removes every agent. Id allocation continues where it was, so a
// worker that outlives the clear can never write into a newer agent.
// Queued spawn requests are not affected; cancel them on the scheduler first.
func (r *Registry) ClearAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.records)
	r.records = make(map[string]*Record)
	r.order = nil
	return n
}

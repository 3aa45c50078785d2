// Package scheduler queues spawn requests and runs their workers in the
// background, with at most PoolSize workers in flight. Requests start in FIFO
// order: the drain marks each agent Running before it pops the next one.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"agentcore/pkg/logx"
	"agentcore/pkg/registry"
)

// DefaultPoolSize keeps workers strictly serialized.
const DefaultPoolSize = 1

// Request is one queued spawn.
type Request struct {
	AgentID  string
	Purpose  string
	Context  registry.Context
	QueuedAt time.Time
}

// Runner executes one worker to completion. The agent is already Running when
// Run is called; the runner is expected to move it to a terminal status. The
// scheduler fails any record left non-terminal.
type Runner interface {
	Run(ctx context.Context, req Request) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, req Request) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Observer receives queue and worker events.
type Observer interface {
	QueueDepth(n int)
	WorkerFinished(status string, d time.Duration)
}

// QueueStatus is a snapshot of the scheduler.
type QueueStatus struct {
	Queued     int  `json:"queued"`
	Processing bool `json:"processing"`
	InFlight   int  `json:"inFlight"`
	PoolSize   int  `json:"poolSize"`
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPoolSize bounds concurrent workers. Values below 1 are treated as 1.
func WithPoolSize(n int) Option {
	return func(s *Scheduler) {
		if n < 1 {
			n = 1
		}
		s.poolSize = n
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithBaseContext sets the context every worker runs under.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Scheduler) { s.baseCtx = ctx }
}

// Scheduler is the background FIFO executor for spawned agents.
type Scheduler struct {
	registry *registry.Registry
	runner   Runner
	observer Observer
	logger   *logx.Logger
	baseCtx  context.Context
	poolSize int
	sem      *semaphore.Weighted

	mu         sync.Mutex
	queue      []Request
	draining   bool
	inFlight   int
	idle       chan struct{}
	idleClosed bool
}

// New creates a scheduler that runs requests with runner and repairs records in reg.
func New(reg *registry.Registry, runner Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry: reg,
		runner:   runner,
		logger:   logx.NewLogger("scheduler"),
		baseCtx:  context.Background(),
		poolSize: DefaultPoolSize,
		idle:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sem = semaphore.NewWeighted(int64(s.poolSize))
	close(s.idle)
	s.idleClosed = true
	return s
}

// Enqueue appends a request and returns its 1-based queue position.
// It never blocks on worker execution.
func (s *Scheduler) Enqueue(agentID, purpose string, agentCtx registry.Context) int {
	s.mu.Lock()
	s.queue = append(s.queue, Request{
		AgentID:  agentID,
		Purpose:  purpose,
		Context:  agentCtx,
		QueuedAt: time.Now(),
	})
	pos := len(s.queue)
	if s.idleClosed {
		s.idle = make(chan struct{})
		s.idleClosed = false
	}
	start := !s.draining
	s.draining = true
	s.mu.Unlock()

	s.logger.Info("📥 Agent %s queued at position %d", agentID, pos)
	s.observeDepth(pos)
	if start {
		go s.drain()
	}
	return pos
}

// drain dequeues in FIFO order. A semaphore slot is taken before each pop and
// the popped agent is marked Running under the queue lock, so no request
// starts ahead of one queued before it, whatever the pool size.
func (s *Scheduler) drain() {
	logx.Debug(s.baseCtx, "scheduler", "drain started")
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.signalIdleLocked()
			s.mu.Unlock()
			logx.Debug(s.baseCtx, "scheduler", "drain finished")
			return
		}
		s.mu.Unlock()

		if err := s.sem.Acquire(s.baseCtx, 1); err != nil {
			s.logger.Warn("Scheduler stopped waiting for a worker slot: %v", err)
			s.mu.Lock()
			s.draining = false
			s.signalIdleLocked()
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			s.sem.Release(1)
			continue
		}
		req := s.queue[0]
		s.queue[0] = Request{}
		s.queue = s.queue[1:]
		if len(s.queue) == 0 {
			s.queue = nil
		}
		startErr := s.registry.MarkRunning(req.AgentID)
		if startErr == nil {
			s.inFlight++
		}
		depth := len(s.queue)
		s.mu.Unlock()

		s.observeDepth(depth)
		if startErr != nil {
			s.sem.Release(1)
			s.logger.Warn("Skipping agent %s: %v", req.AgentID, startErr)
			continue
		}
		go s.execute(req)
	}
}

func (s *Scheduler) execute(req Request) {
	defer func() {
		s.sem.Release(1)
		s.mu.Lock()
		s.inFlight--
		s.signalIdleLocked()
		s.mu.Unlock()
	}()

	ctx := logx.WithAgentID(s.baseCtx, req.AgentID)
	s.logger.Info("🚀 Starting agent %s (waited %s): %s", req.AgentID, time.Since(req.QueuedAt).Round(time.Millisecond), req.Purpose)

	start := time.Now()
	err := s.runSafely(ctx, req)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("❌ Agent %s failed after %.3fs: %v", req.AgentID, duration.Seconds(), err)
	}

	status := s.settle(req.AgentID, err)
	s.logger.Info("Agent %s finished with status %s", req.AgentID, status)
	if s.observer != nil {
		s.observer.WorkerFinished(string(status), duration)
	}
}

func (s *Scheduler) runSafely(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskFailure{AgentID: req.AgentID, Panic: r}
		}
	}()
	return s.runner.Run(ctx, req)
}

// settle makes sure the record ends terminal, failing it with err when the
// runner did not record an outcome.
func (s *Scheduler) settle(agentID string, runErr error) registry.Status {
	rec, err := s.registry.Get(agentID)
	if err != nil {
		s.logger.Warn("Agent %s vanished from the registry before it finished", agentID)
		return registry.StatusFailed
	}
	if rec.Status.IsTerminal() {
		return rec.Status
	}

	msg := "worker exited without recording an outcome"
	if runErr != nil {
		msg = runErr.Error()
	}
	if rec.Status == registry.StatusInitializing {
		if err := s.registry.MarkRunning(agentID); err != nil {
			s.logger.Warn("Agent %s: %v", agentID, err)
		}
	}
	if err := s.registry.Fail(agentID, msg); err != nil {
		s.logger.Warn("Agent %s: %v", agentID, err)
	}
	return registry.StatusFailed
}

// CancelQueued drops every request that has not started and returns how many
// were dropped. Running workers are unaffected; dropped records stay Initializing.
func (s *Scheduler) CancelQueued() int {
	s.mu.Lock()
	n := len(s.queue)
	s.queue = nil
	s.signalIdleLocked()
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info("Cancelled %d queued agents", n)
	}
	s.observeDepth(0)
	return n
}

// IsQueued reports whether agentID is waiting in the queue. A popped request is
// already Running in the registry by the time this returns false.
func (s *Scheduler) IsQueued(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].AgentID == agentID {
			return true
		}
	}
	return false
}

// Status returns a snapshot of the queue.
func (s *Scheduler) Status() QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return QueueStatus{
		Queued:     len(s.queue),
		Processing: s.draining || s.inFlight > 0,
		InFlight:   s.inFlight,
		PoolSize:   s.poolSize,
	}
}

// Wait blocks until the queue is empty and no worker is running, or ctx ends.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduler to go idle: %w", ctx.Err())
	}
}

// Shutdown cancels queued requests and waits for running workers.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.CancelQueued()
	return s.Wait(ctx)
}

func (s *Scheduler) signalIdleLocked() {
	if s.idleClosed || s.draining || s.inFlight > 0 || len(s.queue) > 0 {
		return
	}
	close(s.idle)
	s.idleClosed = true
}

func (s *Scheduler) observeDepth(n int) {
	if s.observer != nil {
		s.observer.QueueDepth(n)
	}
}

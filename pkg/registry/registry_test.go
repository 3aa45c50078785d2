package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentcore/pkg/tools"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []string
}

func (o *recordingObserver) AgentTransitioned(status string) {
	o.mu.Lock()
	o.seen = append(o.seen, status)
	o.mu.Unlock()
}

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	r := New()

	ids := []string{
		r.Register("first", Context{}),
		r.Register("second", Context{Files: []string{"a.go"}}),
		r.Register("third", Context{}),
	}

	assert.Equal(t, []string{"agent_0", "agent_1", "agent_2"}, ids)

	rec, err := r.Get("agent_1")
	require.NoError(t, err)
	assert.Equal(t, "second", rec.Purpose)
	assert.Equal(t, StatusInitializing, rec.Status)
	assert.Equal(t, []string{"a.go"}, rec.Context.Files)
	assert.Nil(t, rec.StartedAt)
}

func TestLifecycleTransitions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	obs := &recordingObserver{}
	r := New(WithClock(clock.Now), WithObserver(obs))

	id := r.Register("audit auth", Context{})

	// Cannot skip Running.
	err := r.Complete(id, "done")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "Agent agent_0 cannot move from initializing to completed", err.Error())

	require.NoError(t, r.MarkRunning(id))
	clock.Advance(3 * time.Second)
	require.NoError(t, r.Complete(id, map[string]any{"findings": 2}))

	// No regression and no second terminal state.
	assert.ErrorIs(t, r.MarkRunning(id), ErrInvalidTransition)
	assert.ErrorIs(t, r.Fail(id, "late"), ErrInvalidTransition)

	rec, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, 3*time.Second, rec.ExecutionTime())
	assert.Equal(t, []string{"initializing", "running", "completed"}, obs.seen)
}

func TestFailRecordsError(t *testing.T) {
	r := New()
	id := r.Register("p", Context{})
	require.NoError(t, r.MarkRunning(id))
	require.NoError(t, r.Fail(id, "engine unavailable"))

	rec, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "engine unavailable", rec.Error)
	assert.NotNil(t, rec.CompletedAt)
}

func TestGetResult(t *testing.T) {
	r := New()
	id := r.Register("p", Context{})
	require.NoError(t, r.MarkRunning(id))

	_, err := r.GetResult(id)
	require.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, "Agent agent_0 has not completed yet. Status: running", err.Error())

	_, err = r.GetResult("agent_99")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Agent agent_99 not found", err.Error())

	require.NoError(t, r.Complete(id, "report"))
	res, err := r.GetResult(id)
	require.NoError(t, err)
	assert.Equal(t, "report", res)

	var regErr *Error
	_, err = r.GetResult("missing")
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "missing", regErr.ID)
}

func TestToolHistoryIsOrderedAndCopied(t *testing.T) {
	r := New()
	id := r.Register("p", Context{})

	for i := 0; i < 3; i++ {
		require.NoError(t, r.RecordToolCall(id, ToolCallRecord{
			Tool:       "file_read",
			Parameters: map[string]any{"filePath": fmt.Sprintf("f%d.go", i)},
			Result:     tools.Success(i),
		}))
	}

	hist, err := r.ToolHistory(id)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	for i, call := range hist {
		assert.Equal(t, fmt.Sprintf("f%d.go", i), call.Parameters["filePath"])
		assert.False(t, call.Timestamp.IsZero())
	}

	// Mutating the copy leaves the registry untouched.
	hist[0].Tool = "tampered"
	again, err := r.ToolHistory(id)
	require.NoError(t, err)
	assert.Equal(t, "file_read", again[0].Tool)

	assert.ErrorIs(t, r.RecordToolCall("agent_9", ToolCallRecord{}), ErrNotFound)
	_, err = r.ToolHistory("agent_9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusView(t *testing.T) {
	r := New()
	id := r.Register("p", Context{})
	require.NoError(t, r.RecordToolCall(id, ToolCallRecord{Tool: "list_directory"}))

	view, err := r.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusInitializing, view.Status)
	assert.Equal(t, 1, view.ToolCallCount)
}

func TestListAndFilter(t *testing.T) {
	r := New()
	a := r.Register("a", Context{})
	b := r.Register("b", Context{})
	c := r.Register("c", Context{})
	require.NoError(t, r.MarkRunning(a))
	require.NoError(t, r.Complete(a, nil))
	require.NoError(t, r.MarkRunning(b))

	all := r.List()
	require.Len(t, all, 3)
	assert.Equal(t, []string{a, b, c}, []string{all[0].ID, all[1].ID, all[2].ID})

	running := r.FilterByStatus(StatusRunning)
	require.Len(t, running, 1)
	assert.Equal(t, b, running[0].ID)
	assert.Equal(t, 2, r.Active())
}

func TestSummary(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	r := New(WithClock(clock.Now))

	a := r.Register("a", Context{})
	b := r.Register("b", Context{})
	r.Register("c", Context{})

	require.NoError(t, r.MarkRunning(a))
	require.NoError(t, r.MarkRunning(b))
	require.NoError(t, r.RecordToolCall(a, ToolCallRecord{Tool: "x"}))
	require.NoError(t, r.RecordToolCall(b, ToolCallRecord{Tool: "y"}))
	require.NoError(t, r.RecordToolCall(b, ToolCallRecord{Tool: "z"}))
	clock.Advance(2 * time.Second)
	require.NoError(t, r.Complete(a, nil))
	clock.Advance(2 * time.Second)
	require.NoError(t, r.Fail(b, "boom"))

	s := r.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, map[Status]int{
		StatusInitializing: 1,
		StatusRunning:      0,
		StatusCompleted:    1,
		StatusFailed:       1,
	}, s.ByStatus)
	assert.Equal(t, 3, s.TotalToolCalls)
	assert.Equal(t, 3*time.Second, s.AverageExecutionTime)
	assert.Equal(t, int64(3000), s.AverageExecutionMs)
}

func TestClearCompletedAndClearAll(t *testing.T) {
	r := New()
	a := r.Register("a", Context{})
	b := r.Register("b", Context{})
	c := r.Register("c", Context{})
	require.NoError(t, r.MarkRunning(a))
	require.NoError(t, r.Complete(a, nil))
	require.NoError(t, r.MarkRunning(b))
	require.NoError(t, r.Fail(b, "x"))

	assert.Equal(t, 2, r.ClearCompleted())
	remaining := r.List()
	require.Len(t, remaining, 1)
	assert.Equal(t, c, remaining[0].ID)

	// Ids keep increasing after a partial clear.
	assert.Equal(t, "agent_3", r.Register("d", Context{}))

	assert.Equal(t, 2, r.ClearAll())
	assert.Empty(t, r.List())
	assert.Equal(t, "agent_4", r.Register("fresh", Context{}))
}

func TestIDsNeverRepeatAcrossClears(t *testing.T) {
	r := New()
	seen := make(map[string]bool)
	last := -1
	register := func(purpose string) string {
		id := r.Register(purpose, Context{})
		require.False(t, seen[id], "id %s handed out twice", id)
		seen[id] = true

		var n int
		_, err := fmt.Sscanf(id, "agent_%d", &n)
		require.NoError(t, err)
		assert.Greater(t, n, last, "id %s is not above the previous one", id)
		last = n
		return id
	}

	for round := 0; round < 5; round++ {
		a := register("a")
		register("b")
		require.NoError(t, r.MarkRunning(a))
		require.NoError(t, r.Complete(a, nil))
		if round%2 == 0 {
			r.ClearCompleted()
		} else {
			r.ClearAll()
		}
		register("c")
	}
	assert.Len(t, seen, 15)
}

func TestOutcomeAfterClearAllDoesNotLeak(t *testing.T) {
	r := New()
	old := r.Register("old", Context{})
	require.NoError(t, r.MarkRunning(old))

	r.ClearAll()
	fresh := r.Register("fresh", Context{})
	require.NoError(t, r.MarkRunning(fresh))
	assert.NotEqual(t, old, fresh)

	// The worker for the cleared agent finishes late.
	err := r.Complete(old, "stale result")
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := r.Get(fresh)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, rec.Status)
	assert.Nil(t, rec.Result)
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := r.Register(fmt.Sprintf("p%d", i), Context{})
			ids <- id
			if err := r.MarkRunning(id); err != nil {
				t.Errorf("MarkRunning(%s): %v", id, err)
				return
			}
			_ = r.RecordToolCall(id, ToolCallRecord{Tool: "t"})
			if i%2 == 0 {
				_ = r.Complete(id, i)
			} else {
				_ = r.Fail(id, "odd")
			}
		}(i)
	}

	// Readers race with writers.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = r.List()
			_ = r.Summary()
		}
	}()

	wg.Wait()
	<-done
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	s := r.Summary()
	assert.Equal(t, n, s.Total)
	assert.Equal(t, n/2, s.ByStatus[StatusCompleted])
	assert.Equal(t, n/2, s.ByStatus[StatusFailed])
	assert.Equal(t, n, s.TotalToolCalls)

	// Registration order matches id order.
	list := r.List()
	for i, rec := range list {
		assert.Equal(t, fmt.Sprintf("agent_%d", i), rec.ID)
	}
}

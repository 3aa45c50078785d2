package eventlog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"agentcore/pkg/registry"
	"agentcore/pkg/tools"
)

func TestNewWriter(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "events")

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	currentFile := writer.CurrentLogFile()
	if currentFile == "" {
		t.Fatal("No current log file set")
	}
	if _, err := os.Stat(currentFile); os.IsNotExist(err) {
		t.Error("Current log file does not exist")
	}
}

func TestWriteAndReadEvents(t *testing.T) {
	writer, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	events := []Event{
		{Kind: KindRunStarted, RunID: "run-1"},
		{Kind: KindAgentQueued, RunID: "run-1", AgentID: "agent_1", Purpose: "analyze"},
		{Kind: KindRunFinished, RunID: "run-1", Data: map[string]any{"sequence": 3}},
	}
	for i := range events {
		if err := writer.Write(&events[i]); err != nil {
			t.Fatalf("Failed to write event %d: %v", i, err)
		}
		if events[i].Timestamp.IsZero() {
			t.Errorf("Event %d timestamp was not set", i)
		}
	}

	read, err := ReadEvents(writer.CurrentLogFile())
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(read) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(read))
	}
	for i := range read {
		if read[i].Kind != events[i].Kind {
			t.Errorf("Event %d kind mismatch: expected %s, got %s", i, events[i].Kind, read[i].Kind)
		}
	}
	if read[1].Purpose != "analyze" {
		t.Errorf("Expected purpose to round trip, got %q", read[1].Purpose)
	}
	data, ok := read[2].Data.(map[string]any)
	if !ok || data["sequence"] != float64(3) {
		t.Errorf("Unexpected data: %#v", read[2].Data)
	}
}

func TestDailyRotation(t *testing.T) {
	tmpDir := t.TempDir()
	day := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	now := day

	writer, err := newWriter(tmpDir, func() time.Time { return now })
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Write(&Event{Kind: KindRunStarted}); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	first := writer.CurrentLogFile()

	now = day.Add(2 * time.Minute)
	if err := writer.Write(&Event{Kind: KindRunFinished}); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	second := writer.CurrentLogFile()

	if first == second {
		t.Fatalf("Expected rotation to a new file, still on %s", first)
	}
	if filepath.Base(second) != "events-2025-03-02.jsonl" {
		t.Errorf("Unexpected file name %s", filepath.Base(second))
	}

	files, err := ListLogFiles(tmpDir)
	if err != nil {
		t.Fatalf("Failed to list log files: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Expected 2 log files, got %d", len(files))
	}
	for _, f := range files {
		events, err := ReadEvents(f)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f, err)
		}
		if len(events) != 1 {
			t.Errorf("Expected 1 event in %s, got %d", f, len(events))
		}
	}
}

func TestRecordEvents(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	done := started.Add(3 * time.Second)

	rec := &registry.Record{
		ID:          "agent_2",
		Purpose:     "review tests",
		Status:      registry.StatusFailed,
		CreatedAt:   created,
		StartedAt:   &started,
		CompletedAt: &done,
		Error:       "LLM completion failed",
		ToolCalls: []registry.ToolCallRecord{
			{Tool: tools.ToolFileRead, Result: tools.Success("ok"), Timestamp: started.Add(time.Second)},
			{Tool: tools.ToolListDirectory, Result: tools.Failure("no such directory"), Timestamp: started.Add(2 * time.Second)},
		},
	}

	events := RecordEvents("run-9", rec)
	kinds := []Kind{KindAgentQueued, KindAgentStarted, KindToolCall, KindToolCall, KindAgentFinished}
	if len(events) != len(kinds) {
		t.Fatalf("Expected %d events, got %d", len(kinds), len(events))
	}
	for i, k := range kinds {
		if events[i].Kind != k {
			t.Errorf("Event %d: expected %s, got %s", i, k, events[i].Kind)
		}
		if events[i].RunID != "run-9" || events[i].AgentID != "agent_2" {
			t.Errorf("Event %d missing run or agent id: %+v", i, events[i])
		}
	}
	if !events[4].Timestamp.Equal(done) || events[4].Status != registry.StatusFailed {
		t.Errorf("Unexpected finish event: %+v", events[4])
	}
	if events[3].Error != "no such directory" {
		t.Errorf("Expected tool error to be journaled, got %q", events[3].Error)
	}
}

func TestRecordEventsQueuedOnly(t *testing.T) {
	rec := &registry.Record{ID: "agent_5", Status: registry.StatusInitializing, CreatedAt: time.Now()}
	events := RecordEvents("", rec)
	if len(events) != 1 || events[0].Kind != KindAgentQueued {
		t.Errorf("Expected a single queued event, got %+v", events)
	}
}

func TestReadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events-2025-01-01.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	events, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("Failed to read empty file: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
}

func TestWriterClose(t *testing.T) {
	writer, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if writer.CurrentLogFile() != "" {
		t.Error("Expected no current file after close")
	}
	if err := writer.Write(&Event{Kind: KindRunStarted}); err == nil {
		t.Error("Expected write after close to fail")
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	writer, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	const goroutines, perGoroutine = 8, 25
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				if err := writer.Write(&Event{Kind: KindToolCall, Tool: tools.ToolFileRead}); err != nil {
					t.Errorf("Concurrent write failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	events, err := ReadEvents(writer.CurrentLogFile())
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(events) != goroutines*perGoroutine {
		t.Errorf("Expected %d events, got %d", goroutines*perGoroutine, len(events))
	}
}

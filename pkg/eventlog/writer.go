// Package eventlog journals agent lifecycles to daily rotated JSONL files.
package eventlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"agentcore/pkg/registry"
)

// Kind names what an event records.
type Kind string

// Event kinds.
const (
	KindRunStarted    Kind = "run_started"
	KindRunFinished   Kind = "run_finished"
	KindAgentQueued   Kind = "agent_queued"
	KindAgentStarted  Kind = "agent_started"
	KindAgentFinished Kind = "agent_finished"
	KindToolCall      Kind = "tool_call"
)

// Event is one journal line.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	Kind      Kind            `json:"kind"`
	RunID     string          `json:"runId,omitempty"`
	AgentID   string          `json:"agentId,omitempty"`
	Status    registry.Status `json:"status,omitempty"`
	Purpose   string          `json:"purpose,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      any             `json:"data,omitempty"`
}

// Writer appends events to events-YYYY-MM-DD.jsonl in its directory.
type Writer struct {
	logDir      string
	currentFile *os.File
	currentDate string
	now         func() time.Time
	mu          sync.Mutex
}

// NewWriter creates the directory if needed and opens today's file.
func NewWriter(logDir string) (*Writer, error) {
	return newWriter(logDir, time.Now)
}

func newWriter(logDir string, now func() time.Time) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	w := &Writer{logDir: logDir, now: now}
	if err := w.rotateIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}
	return w, nil
}

// Write appends one event. A zero timestamp is set to the current time.
func (w *Writer) Write(e *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return errors.New("event log is closed")
	}
	if err := w.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = w.now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.currentFile.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.currentFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// WriteRecord journals an agent's lifecycle from its registry record:
// queued, started, each tool call, then finished, each at its own time.
func (w *Writer) WriteRecord(runID string, rec *registry.Record) error {
	events := RecordEvents(runID, rec)
	for i := range events {
		if err := w.Write(&events[i]); err != nil {
			return err
		}
	}
	return nil
}

// RecordEvents expands a record into its lifecycle events. Steps the agent
// never reached are omitted.
func RecordEvents(runID string, rec *registry.Record) []Event {
	events := []Event{{
		Timestamp: rec.CreatedAt,
		Kind:      KindAgentQueued,
		RunID:     runID,
		AgentID:   rec.ID,
		Status:    registry.StatusInitializing,
		Purpose:   rec.Purpose,
	}}
	if rec.StartedAt != nil {
		events = append(events, Event{
			Timestamp: *rec.StartedAt,
			Kind:      KindAgentStarted,
			RunID:     runID,
			AgentID:   rec.ID,
			Status:    registry.StatusRunning,
		})
	}
	for _, call := range rec.ToolCalls {
		events = append(events, Event{
			Timestamp: call.Timestamp,
			Kind:      KindToolCall,
			RunID:     runID,
			AgentID:   rec.ID,
			Tool:      call.Tool,
			Error:     call.Result.Error,
		})
	}
	if rec.CompletedAt != nil {
		events = append(events, Event{
			Timestamp: *rec.CompletedAt,
			Kind:      KindAgentFinished,
			RunID:     runID,
			AgentID:   rec.ID,
			Status:    rec.Status,
			Error:     rec.Error,
			Data:      rec.Result,
		})
	}
	return events
}

func (w *Writer) rotateIfNeeded() error {
	newDate := w.now().Format("2006-01-02")
	if w.currentFile == nil || w.currentDate != newDate {
		return w.rotate(newDate)
	}
	return nil
}

func (w *Writer) rotate(newDate string) error {
	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			return fmt.Errorf("failed to close current log file: %w", err)
		}
	}

	path := filepath.Join(w.logDir, fileName(newDate))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	w.currentFile = file
	w.currentDate = newDate
	return nil
}

// Close closes the current log file. Later writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile != nil {
		err := w.currentFile.Close()
		w.currentFile = nil
		if err != nil {
			return fmt.Errorf("failed to close event log file: %w", err)
		}
	}
	return nil
}

// CurrentLogFile returns the path of the active file, or "" once closed.
func (w *Writer) CurrentLogFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return ""
	}
	return filepath.Join(w.logDir, fileName(w.currentDate))
}

func fileName(date string) string {
	return fmt.Sprintf("events-%s.jsonl", date)
}

// ReadEvents parses every event in a journal file.
func ReadEvents(logFilePath string) ([]Event, error) {
	data, err := os.ReadFile(logFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	events := []Event{}
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return nil, fmt.Errorf("failed to parse event %d: %w", len(events)+1, err)
		}
		events = append(events, e)
	}
}

// ListLogFiles returns all journal files in logDir.
func ListLogFiles(logDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(logDir, "events-*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	return files, nil
}

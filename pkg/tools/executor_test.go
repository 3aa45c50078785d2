package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubTool struct {
	name   string
	schema InputSchema
	exec   func(context.Context, map[string]any) (any, error)
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Definition() ToolDefinition {
	return ToolDefinition{Name: s.name, Description: "stub " + s.name, InputSchema: s.schema}
}

func (s *stubTool) Exec(ctx context.Context, args map[string]any) (any, error) {
	if s.exec != nil {
		return s.exec(ctx, args)
	}
	return "ok", nil
}

func TestExecutorUnknownTool(t *testing.T) {
	exec, err := NewExecutor()
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	res := exec.Execute(context.Background(), "foo", map[string]any{})
	if res.Success {
		t.Fatal("Expected failure for unknown tool")
	}
	if res.Error != "Unknown tool: foo" {
		t.Errorf("Expected 'Unknown tool: foo', got %q", res.Error)
	}

	v := exec.Validate("foo", nil)
	if v.Valid || len(v.Errors) != 1 || v.Errors[0] != "Unknown tool: foo" {
		t.Errorf("Unexpected validation: %+v", v)
	}
}

func TestExecutorRejectsSpawnName(t *testing.T) {
	_, err := NewExecutor(&stubTool{name: ToolSpawnAgent})
	if err == nil {
		t.Fatal("Expected spawn_agent registration to fail")
	}
}

func TestExecutorRejectsDuplicates(t *testing.T) {
	_, err := NewExecutor(&stubTool{name: "a"}, &stubTool{name: "a"})
	if err == nil {
		t.Fatal("Expected duplicate registration to fail")
	}
}

func TestExecutorDefinitionsPreserveOrder(t *testing.T) {
	exec, err := NewExecutor(&stubTool{name: "c"}, &stubTool{name: "a"}, &stubTool{name: "b"})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	defs := exec.Definitions()
	got := []string{defs[0].Name, defs[1].Name, defs[2].Name}
	if strings.Join(got, ",") != "c,a,b" {
		t.Errorf("Expected registration order c,a,b, got %v", got)
	}
}

func TestExecutorToolErrorAndPanic(t *testing.T) {
	exec, err := NewExecutor(
		&stubTool{name: "fails", exec: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("disk full")
		}},
		&stubTool{name: "panics", exec: func(context.Context, map[string]any) (any, error) {
			panic("kaboom")
		}},
	)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	res := exec.Execute(context.Background(), "fails", nil)
	if res.Success || res.Error != "disk full" {
		t.Errorf("Unexpected result: %+v", res)
	}

	res = exec.Execute(context.Background(), "panics", nil)
	if res.Success || !strings.Contains(res.Error, "kaboom") {
		t.Errorf("Expected recovered panic, got %+v", res)
	}
}

func TestExecutorSuccessPayload(t *testing.T) {
	exec, err := NewExecutor(&stubTool{name: "echo", exec: func(_ context.Context, args map[string]any) (any, error) {
		return args["msg"], nil
	}})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	res := exec.Execute(context.Background(), "echo", map[string]any{"msg": "hi"})
	if !res.Success || res.Payload != "hi" {
		t.Errorf("Unexpected result: %+v", res)
	}
}

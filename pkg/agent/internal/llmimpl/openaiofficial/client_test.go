package openaiofficial

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
)

func TestNewOfficialClientWithModel(t *testing.T) {
	if got := NewOfficialClientWithModel("k", "gpt-4o").GetModelName(); got != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %q", got)
	}
	if got := NewOfficialClientWithModel("k", "").GetModelName(); got != DefaultModel {
		t.Errorf("expected default model, got %q", got)
	}
}

func TestBuildInput(t *testing.T) {
	instructions, items := buildInput([]llm.CompletionMessage{
		llm.NewSystemMessage("persona"),
		llm.NewSystemMessage("rules"),
		llm.NewUserMessage("Begin"),
		llm.NewAssistantMessage("", []llm.ToolCall{{ID: "call_1", Name: "file_read", Parameters: map[string]any{"filePath": "a.go"}}}),
		llm.NewToolResultMessage([]llm.ToolResult{{ToolCallID: "call_1", Name: "file_read", Content: `{"success":true}`}}),
	})

	if instructions != "persona\n\nrules" {
		t.Errorf("unexpected instructions %q", instructions)
	}
	// user message, function call, function call output
	if len(items) != 3 {
		t.Fatalf("expected 3 input items, got %d", len(items))
	}
	if items[1].OfFunctionCall == nil || items[1].OfFunctionCall.CallID != "call_1" {
		t.Errorf("expected function call item, got %+v", items[1])
	}
	if items[2].OfFunctionCallOutput == nil || items[2].OfFunctionCallOutput.CallID != "call_1" {
		t.Errorf("expected function call output item, got %+v", items[2])
	}
}

func TestCompleteAgainstStubServer(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "resp_1", "object": "response", "created_at": 0, "model": "gpt-test", "status": "completed",
			"output": [
				{"type": "function_call", "id": "fc_1", "call_id": "call_1", "name": "list_directory", "arguments": "{\"recursive\":true}", "status": "completed"}
			]
		}`)
	}))
	defer srv.Close()

	client := NewOfficialClientWithModel("k", "gpt-test", option.WithBaseURL(srv.URL+"/v1/"))
	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("You are a worker."),
		llm.NewUserMessage("Begin"),
	}))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_1" || resp.ToolCalls[0].Parameters["recursive"] != true {
		t.Errorf("unexpected tool calls %+v", resp.ToolCalls)
	}
	if resp.StopReason != "tool_use" {
		t.Errorf("expected tool_use stop reason, got %q", resp.StopReason)
	}
	if captured["instructions"] != "You are a worker." {
		t.Errorf("instructions not sent: %v", captured["instructions"])
	}
}

func TestCompleteClassifiesAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	client := NewOfficialClientWithModel("k", "gpt-test", option.WithBaseURL(srv.URL+"/v1/"))
	_, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hi")}))
	if !llmerrors.Is(err, llmerrors.ErrorTypeAuth) {
		t.Fatalf("expected auth classification, got %v", err)
	}
}

package agent

import (
	"context"
	"testing"
	"time"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
	"agentcore/pkg/agent/middleware/metrics"
	"agentcore/pkg/config"
	"agentcore/pkg/logx"
)

type flakyClient struct {
	failures int
	calls    int
}

func (f *flakyClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeTransient, "503")
	}
	return llm.CompletionResponse{Content: "done"}, nil
}

func (f *flakyClient) GetModelName() string { return "flaky" }

func testEngineConfig() *config.EngineConfig {
	cfg := config.Default()
	cfg.Engine.Provider = config.ProviderAnthropic
	cfg.Engine.Retry.InitialDelay = time.Millisecond
	cfg.Engine.Retry.MaxDelay = time.Millisecond
	return &cfg.Engine
}

func TestWrapRetriesAndRecords(t *testing.T) {
	raw := &flakyClient{failures: 2}
	usage := metrics.NewUsageRecorder()
	client := Wrap(raw, testEngineConfig(), usage)

	ctx := logx.WithAgentID(context.Background(), "agent_0")
	resp, err := client.Complete(ctx, llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("go")}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "done" || raw.calls != 3 {
		t.Errorf("expected success on third attempt, got %q after %d calls", resp.Content, raw.calls)
	}
	// Metrics sit outside retry: one observation per logical call.
	if u := usage.Usage("agent_0"); u == nil || u.RequestCount != 1 {
		t.Errorf("expected one recorded request, got %+v", u)
	}
	if client.GetModelName() != "flaky" {
		t.Errorf("model name should pass through, got %q", client.GetModelName())
	}
}

func TestNewClientValidation(t *testing.T) {
	cfg := testEngineConfig()
	cfg.APIKey = ""
	if _, err := NewClient(cfg, nil); err == nil {
		t.Error("expected missing key error")
	}

	cfg.APIKey = "k"
	cfg.Provider = "llamas"
	if _, err := NewClient(cfg, nil); err == nil {
		t.Error("expected unsupported provider error")
	}

	for _, provider := range []string{config.ProviderAnthropic, config.ProviderOpenAI, config.ProviderGoogle} {
		cfg.Provider = provider
		cfg.Model = "model-" + provider
		client, err := NewClient(cfg, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", provider, err)
		}
		if client.GetModelName() != "model-"+provider {
			t.Errorf("%s: unexpected model %q", provider, client.GetModelName())
		}
	}
}

func TestNewClientOllamaNeedsNoKey(t *testing.T) {
	cfg := testEngineConfig()
	cfg.Provider = config.ProviderOllama
	cfg.APIKey = ""
	cfg.Model = "qwen2.5-coder:7b"
	cfg.BaseURL = "http://127.0.0.1:11434"

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.GetModelName() != "qwen2.5-coder:7b" {
		t.Errorf("unexpected model %q", client.GetModelName())
	}
}

package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
	"agentcore/pkg/agent/middleware/resilience/circuit"
	"agentcore/pkg/logx"
)

type fixedClient struct {
	resp llm.CompletionResponse
	err  error
}

func (c fixedClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	return c.resp, c.err
}

func (c fixedClient) GetModelName() string { return "test-model" }

func TestMiddlewareRecordsUsagePerAgent(t *testing.T) {
	usage := NewUsageRecorder()
	client := llm.Chain(fixedClient{resp: llm.CompletionResponse{Content: "done"}}, Middleware(usage, nil, nil))

	ctx := logx.WithAgentID(context.Background(), "agent_0")
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("Begin your task now.")})
	for i := 0; i < 2; i++ {
		if _, err := client.Complete(ctx, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	u := usage.Usage("agent_0")
	if u == nil {
		t.Fatal("expected usage for agent_0")
	}
	if u.RequestCount != 2 || u.PromptTokens == 0 || u.CompletionTokens == 0 {
		t.Errorf("unexpected usage %+v", u)
	}
	if u.TotalTokens != u.PromptTokens+u.CompletionTokens {
		t.Errorf("total mismatch %+v", u)
	}
}

func TestMiddlewarePrometheusLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom := NewPrometheusRecorder(reg)
	usage := NewUsageRecorder()
	client := llm.Chain(fixedClient{err: llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "429")},
		Middleware(Tee(prom, usage), nil, logx.NewLogger("metrics-test")))

	ctx := logx.WithAgentID(context.Background(), "orchestrator")
	if _, err := client.Complete(ctx, llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error")
	}

	got := testutil.ToFloat64(prom.requestsTotal.WithLabelValues("test-model", "orchestrator", statusError, "rate_limit"))
	if got != 1 {
		t.Errorf("expected 1 failed request, got %v", got)
	}
	if u := usage.Usage("orchestrator"); u == nil || u.FailedCount != 1 {
		t.Errorf("expected tee to reach usage recorder, got %+v", u)
	}
}

func TestGetErrorType(t *testing.T) {
	cases := map[string]error{
		"":                nil,
		"circuit_breaker": &circuit.Error{State: circuit.Open},
		"timeout":         context.DeadlineExceeded,
		"canceled":        context.Canceled,
		"auth":            llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key"),
		"unknown":         errors.New("mystery"),
	}
	for want, err := range cases {
		if got := getErrorType(err); got != want {
			t.Errorf("getErrorType(%v) = %q, want %q", err, got, want)
		}
	}
}

package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"agentcore/pkg/agent/llm"
)

func TestBreakerTransitions(t *testing.T) {
	now := time.Unix(0, 0)
	b := New(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute})
	b.now = func() time.Time { return now }

	b.Record(false)
	if b.GetState() != Closed {
		t.Fatalf("expected CLOSED after one failure, got %s", b.GetState())
	}
	b.Record(false)
	if b.GetState() != Open || b.Allow() {
		t.Fatalf("expected OPEN and rejecting, got %s", b.GetState())
	}

	now = now.Add(time.Minute)
	if !b.Allow() || b.GetState() != HalfOpen {
		t.Fatalf("expected HALF_OPEN trial, got %s", b.GetState())
	}
	b.Record(true)
	if b.GetState() != Closed {
		t.Fatalf("expected CLOSED after trial success, got %s", b.GetState())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second})
	b.now = func() time.Time { return now }

	b.Record(false)
	now = now.Add(time.Second)
	b.Allow()
	b.Record(false)
	if b.GetState() != Open {
		t.Fatalf("expected OPEN, got %s", b.GetState())
	}
	b.Reset()
	if b.GetState() != Closed {
		t.Fatalf("expected CLOSED after reset, got %s", b.GetState())
	}
}

type failingClient struct{ calls int }

func (c *failingClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	c.calls++
	return llm.CompletionResponse{}, errors.New("503 service unavailable")
}

func (c *failingClient) GetModelName() string { return "failing" }

func TestMiddlewareShortCircuits(t *testing.T) {
	base := &failingClient{}
	client := llm.Chain(base, Middleware(New(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Hour})))

	for i := 0; i < 2; i++ {
		_, _ = client.Complete(context.Background(), llm.CompletionRequest{})
	}
	_, err := client.Complete(context.Background(), llm.CompletionRequest{})

	var circuitErr *Error
	if !errors.As(err, &circuitErr) || circuitErr.State != Open {
		t.Fatalf("expected open circuit error, got %v", err)
	}
	if base.calls != 2 {
		t.Errorf("expected base to be called twice, got %d", base.calls)
	}
}

package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"agentcore/pkg/agent/llm"
)

type blockingClient struct{}

func (blockingClient) Complete(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	<-ctx.Done()
	return llm.CompletionResponse{}, ctx.Err()
}

func (blockingClient) GetModelName() string { return "blocking" }

func TestMiddlewareBoundsCall(t *testing.T) {
	client := llm.Chain(blockingClient{}, Middleware(20*time.Millisecond))

	start := time.Now()
	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took too long: %v", elapsed)
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	base := blockingClient{}
	if llm.Chain(base, Middleware(0)) != llm.LLMClient(base) {
		t.Error("zero duration should return the next client unchanged")
	}
}

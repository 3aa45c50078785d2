package circuit

import (
	"context"
	"errors"

	"agentcore/pkg/agent/llm"
)

// Middleware rejects calls immediately while the breaker is open.
// Caller cancellation is not counted as an engine failure.
func Middleware(breaker *Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !breaker.Allow() {
					return llm.CompletionResponse{}, &Error{State: breaker.GetState()}
				}

				resp, err := next.Complete(ctx, req)
				if err == nil || !errors.Is(err, context.Canceled) {
					breaker.Record(err == nil)
				}
				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

// Package agent builds reasoning-engine clients: it picks the provider
// adapter named in configuration and wraps it in the middleware chain.
package agent

import (
	"fmt"

	"agentcore/pkg/agent/internal/llmimpl/anthropic"
	"agentcore/pkg/agent/internal/llmimpl/google"
	"agentcore/pkg/agent/internal/llmimpl/ollama"
	"agentcore/pkg/agent/internal/llmimpl/openaiofficial"
	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/middleware/metrics"
	"agentcore/pkg/agent/middleware/resilience/circuit"
	"agentcore/pkg/agent/middleware/resilience/retry"
	"agentcore/pkg/agent/middleware/resilience/timeout"
	"agentcore/pkg/config"
	"agentcore/pkg/logx"
)

// ProviderConstructor creates a raw client for one provider.
type ProviderConstructor func(cfg *config.EngineConfig) llm.LLMClient

// Providers maps configured provider names to adapter constructors.
//
//nolint:gochecknoglobals // provider table
var Providers = map[string]ProviderConstructor{
	config.ProviderAnthropic: func(cfg *config.EngineConfig) llm.LLMClient {
		return anthropic.NewClaudeClientWithModel(cfg.APIKey, cfg.Model)
	},
	config.ProviderOpenAI: func(cfg *config.EngineConfig) llm.LLMClient {
		return openaiofficial.NewOfficialClientWithModel(cfg.APIKey, cfg.Model)
	},
	config.ProviderGoogle: func(cfg *config.EngineConfig) llm.LLMClient {
		return google.NewGeminiClientWithModel(cfg.APIKey, cfg.Model)
	},
	config.ProviderOllama: func(cfg *config.EngineConfig) llm.LLMClient {
		return ollama.NewOllamaClientWithModel(cfg.BaseURL, cfg.Model)
	},
}

// NewClient creates the engine client described by cfg with the full middleware chain.
// A nil recorder disables request metrics.
func NewClient(cfg *config.EngineConfig, recorder metrics.Recorder) (llm.LLMClient, error) {
	ctor, ok := Providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	if cfg.APIKey == "" && config.NeedsAPIKey(cfg.Provider) {
		return nil, fmt.Errorf("no API key configured for provider %s", cfg.Provider)
	}
	return Wrap(ctor(cfg), cfg, recorder), nil
}

// Wrap applies the middleware chain to a raw client:
//
//	metrics -> circuit breaker -> retry -> timeout -> raw client
//
// Each retry attempt gets its own timeout, and the breaker sees one outcome
// per logical call.
func Wrap(raw llm.LLMClient, cfg *config.EngineConfig, recorder metrics.Recorder) llm.LLMClient {
	if recorder == nil {
		recorder = metrics.Nop()
	}

	breaker := circuit.New(circuit.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
		Timeout:          cfg.CircuitBreaker.Timeout,
	})
	policy := retry.NewPolicy(retry.Config{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		InitialDelay:  cfg.Retry.InitialDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		Jitter:        cfg.Retry.Jitter,
	}, nil)

	return llm.Chain(raw,
		metrics.Middleware(recorder, nil, logx.NewLogger("engine")),
		circuit.Middleware(breaker),
		retry.Middleware(policy),
		timeout.Middleware(cfg.RequestTimeout),
	)
}

// Package config loads, defaults and validates agentcore configuration.
//
// Configuration is a single YAML document. String values may reference
// environment variables as ${NAME}; they are substituted before parsing.
// Every section is optional and missing values fall back to the defaults
// below. API keys fall back to the provider's conventional environment
// variable when the file leaves them empty.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"agentcore/pkg/logx"
)

// Supported engine providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// EnvOllamaHost overrides the default Ollama server address.
const EnvOllamaHost = "OLLAMA_HOST"

// Defaults.
const (
	DefaultOrchestratorMaxIterations = 15
	DefaultWorkerMaxIterations       = 10
	DefaultWaitTimeout               = 120 * time.Second
	DefaultPollInterval              = 500 * time.Millisecond
	DefaultPoolSize                  = 1
	DefaultMaxTokens                 = 4096
	DefaultTemperature               = 0.3
	DefaultRequestTimeout            = 3 * time.Minute
	DefaultMetricsListenAddr         = ":9090"
	DefaultOllamaHost                = "http://localhost:11434"
)

// APIKeyEnvVars maps providers to the environment variable holding their key.
//
//nolint:gochecknoglobals // Intentional global for provider key lookup
var APIKeyEnvVars = map[string]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderGoogle:    "GEMINI_API_KEY",
}

// ProviderPattern infers a provider from a model name prefix.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns are consulted when engine.provider is empty.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"phi", ProviderOllama},
	{"deepseek", ProviderOllama},
}

// RetryConfig defines configuration for retry behavior.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// CircuitBreakerConfig defines configuration for circuit breaker behavior.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// EngineConfig selects and tunes the reasoning engine.
// BaseURL is only read by the ollama provider, which needs no API key.
type EngineConfig struct {
	Provider       string               `yaml:"provider"`
	Model          string               `yaml:"model"`
	APIKey         string               `yaml:"api_key"`
	BaseURL        string               `yaml:"base_url"`
	MaxTokens      int                  `yaml:"max_tokens"`
	Temperature    float32              `yaml:"temperature"`
	RequestTimeout time.Duration        `yaml:"request_timeout"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// OrchestratorConfig tunes the top-level conversation and its waits.
type OrchestratorConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	WaitTimeout   time.Duration `yaml:"wait_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	Persona       string        `yaml:"persona"`
}

// WorkerConfig tunes worker conversations.
type WorkerConfig struct {
	MaxIterations int    `yaml:"max_iterations"`
	Persona       string `yaml:"persona"`
}

// SchedulerConfig bounds concurrent workers.
type SchedulerConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// MetricsConfig controls Prometheus exposure.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// ToolsConfig configures the built-in workspace tools.
type ToolsConfig struct {
	WorkspaceRoot string   `yaml:"workspace_root"`
	MaxReadBytes  int64    `yaml:"max_read_bytes"`
	ReadOnly      bool     `yaml:"read_only"`
	Enabled       []string `yaml:"enabled"`
}

// EventLogConfig enables the JSONL agent journal. An empty dir disables it.
type EventLogConfig struct {
	Dir string `yaml:"dir"`
}

// Config is the root configuration document.
type Config struct {
	Engine       EngineConfig       `yaml:"engine"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Worker       WorkerConfig       `yaml:"worker"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Tools        ToolsConfig        `yaml:"tools"`
	EventLog     EventLogConfig     `yaml:"event_log"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnv replaces ${NAME} references with environment values.
// Unset variables become empty strings.
func substituteEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads, substitutes, defaults and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	logx.NewLogger("config").Debug("Loaded config from %s (provider=%s model=%s)", path, cfg.Engine.Provider, cfg.Engine.Model)
	return cfg, nil
}

// Parse decodes a YAML document, then applies defaults and validates.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(substituteEnv(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero value with its default.
func (c *Config) ApplyDefaults() {
	e := &c.Engine
	if e.Provider == "" {
		e.Provider = inferProvider(e.Model)
	}
	e.Provider = strings.ToLower(e.Provider)
	if e.APIKey == "" {
		if env, ok := APIKeyEnvVars[e.Provider]; ok {
			e.APIKey = os.Getenv(env)
		}
	}
	if e.Provider == ProviderOllama && e.BaseURL == "" {
		e.BaseURL = os.Getenv(EnvOllamaHost)
		if e.BaseURL == "" {
			e.BaseURL = DefaultOllamaHost
		}
	}
	if e.MaxTokens == 0 {
		e.MaxTokens = DefaultMaxTokens
	}
	if e.Temperature == 0 {
		e.Temperature = DefaultTemperature
	}
	if e.RequestTimeout == 0 {
		e.RequestTimeout = DefaultRequestTimeout
	}
	if e.Retry.MaxAttempts == 0 {
		e.Retry = RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
			Jitter:        true,
		}
	}
	if e.Retry.BackoffFactor == 0 {
		e.Retry.BackoffFactor = 2.0
	}
	if e.CircuitBreaker.FailureThreshold == 0 {
		e.CircuitBreaker.FailureThreshold = 5
	}
	if e.CircuitBreaker.SuccessThreshold == 0 {
		e.CircuitBreaker.SuccessThreshold = 2
	}
	if e.CircuitBreaker.Timeout == 0 {
		e.CircuitBreaker.Timeout = 30 * time.Second
	}

	if c.Orchestrator.MaxIterations == 0 {
		c.Orchestrator.MaxIterations = DefaultOrchestratorMaxIterations
	}
	if c.Orchestrator.WaitTimeout == 0 {
		c.Orchestrator.WaitTimeout = DefaultWaitTimeout
	}
	if c.Orchestrator.PollInterval == 0 {
		c.Orchestrator.PollInterval = DefaultPollInterval
	}
	if c.Worker.MaxIterations == 0 {
		c.Worker.MaxIterations = DefaultWorkerMaxIterations
	}
	if c.Scheduler.PoolSize == 0 {
		c.Scheduler.PoolSize = DefaultPoolSize
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = DefaultMetricsListenAddr
	}
	if c.Tools.WorkspaceRoot == "" {
		c.Tools.WorkspaceRoot = "."
	}
}

// Validate checks ranges and provider names. It does not require an API key;
// callers that build a live engine check that separately.
func (c *Config) Validate() error {
	var errs []string
	switch c.Engine.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama:
	case "":
		errs = append(errs, "engine.provider is required (anthropic, openai, google or ollama) or must be inferable from engine.model")
	default:
		errs = append(errs, fmt.Sprintf("engine.provider %q is not supported", c.Engine.Provider))
	}
	if c.Engine.MaxTokens < 0 {
		errs = append(errs, "engine.max_tokens must be positive")
	}
	if c.Engine.Temperature < 0 || c.Engine.Temperature > 2 {
		errs = append(errs, "engine.temperature must be between 0.0 and 2.0")
	}
	if c.Engine.Retry.MaxAttempts < 1 {
		errs = append(errs, "engine.retry.max_attempts must be at least 1")
	}
	if c.Orchestrator.MaxIterations < 1 {
		errs = append(errs, "orchestrator.max_iterations must be at least 1")
	}
	if c.Worker.MaxIterations < 1 {
		errs = append(errs, "worker.max_iterations must be at least 1")
	}
	if c.Orchestrator.WaitTimeout < 0 || c.Orchestrator.PollInterval < 0 {
		errs = append(errs, "orchestrator wait durations must not be negative")
	}
	if c.Scheduler.PoolSize < 1 {
		errs = append(errs, "scheduler.pool_size must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RequireAPIKey reports a helpful error when no key is available for the engine.
// Local providers never need one.
func (c *Config) RequireAPIKey() error {
	if c.Engine.APIKey != "" || !NeedsAPIKey(c.Engine.Provider) {
		return nil
	}
	return fmt.Errorf("no API key for provider %s: set engine.api_key or %s", c.Engine.Provider, APIKeyEnvVars[c.Engine.Provider])
}

// NeedsAPIKey reports whether the provider authenticates with an API key.
func NeedsAPIKey(provider string) bool {
	return provider != ProviderOllama
}

func inferProvider(model string) string {
	for i := range ProviderPatterns {
		if strings.HasPrefix(model, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider
		}
	}
	return ""
}

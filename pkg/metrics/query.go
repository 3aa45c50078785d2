package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// AgentTokens is the engine usage of one agent as scraped by Prometheus.
type AgentTokens struct {
	AgentID          string `json:"agent_id"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
}

// QueryService queries a Prometheus server that scrapes agentcore's /metrics.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// AgentUsage returns aggregated token and request counts for one agent across all models.
func (q *QueryService) AgentUsage(ctx context.Context, agentID string) (*AgentTokens, error) {
	return q.usage(ctx, agentID, fmt.Sprintf("agent_id=%q", agentID))
}

// AgentUsageByModel breaks one agent's usage down by model.
func (q *QueryService) AgentUsageByModel(ctx context.Context, agentID string) ([]*AgentTokens, error) {
	modelsQuery := fmt.Sprintf(`group by (model) (llm_requests_total{agent_id=%q})`, agentID)
	modelsResult, _, err := q.queryAPI.Query(ctx, modelsQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}

	var models []string
	if vector, ok := modelsResult.(model.Vector); ok {
		for _, sample := range vector {
			if modelName, ok := sample.Metric["model"]; ok {
				models = append(models, string(modelName))
			}
		}
	}
	sort.Strings(models)

	result := make([]*AgentTokens, 0, len(models))
	for _, modelName := range models {
		usage, err := q.usage(ctx, agentID, fmt.Sprintf("agent_id=%q, model=%q", agentID, modelName))
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", modelName, err)
		}
		usage.Model = modelName
		result = append(result, usage)
	}
	return result, nil
}

func (q *QueryService) usage(ctx context.Context, agentID, selector string) (*AgentTokens, error) {
	usage := &AgentTokens{AgentID: agentID}

	var err error
	if usage.PromptTokens, err = q.scalar(ctx, fmt.Sprintf(`sum(llm_tokens_total{%s, type="prompt"})`, selector)); err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	if usage.CompletionTokens, err = q.scalar(ctx, fmt.Sprintf(`sum(llm_tokens_total{%s, type="completion"})`, selector)); err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	if usage.Requests, err = q.scalar(ctx, fmt.Sprintf(`sum(llm_requests_total{%s})`, selector)); err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage, nil
}

// scalar runs an instant query and returns the first sample, or 0 for an empty vector.
func (q *QueryService) scalar(ctx context.Context, query string) (int64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}

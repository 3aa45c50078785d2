package ollama

import (
	"errors"
	"strings"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
	"agentcore/pkg/tools"
)

func makeToolCallArgs(m map[string]any) api.ToolCallFunctionArguments {
	args := api.NewToolCallFunctionArguments()
	for k, v := range m {
		args.Set(k, v)
	}
	return args
}

func TestNewOllamaClientWithModel(t *testing.T) {
	tests := []struct {
		name      string
		hostURL   string
		model     string
		wantModel string
		wantHost  string
	}{
		{"explicit host and model", "http://192.168.1.100:11434", "qwen2.5-coder:7b", "qwen2.5-coder:7b", "http://192.168.1.100:11434"},
		{"empty values use defaults", "", "", DefaultModel, DefaultHost},
		{"invalid host falls back", "not-a-valid-url", "mistral:7b", "mistral:7b", DefaultHost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewOllamaClientWithModel(tt.hostURL, tt.model)
			require.NotNil(t, client)
			assert.Equal(t, tt.wantModel, client.GetModelName())
			c, ok := client.(*Client)
			require.True(t, ok)
			assert.Equal(t, tt.wantHost, c.hostURL)
		})
	}
}

func TestConvertMessagesToOllama(t *testing.T) {
	msgs, err := convertMessagesToOllama([]llm.CompletionMessage{
		llm.NewSystemMessage("persona"),
		llm.NewUserMessage("Begin"),
		llm.NewAssistantMessage("", []llm.ToolCall{{ID: "c1", Name: "file_read", Parameters: map[string]any{"filePath": "a.go"}}}),
		llm.NewToolResultMessage([]llm.ToolResult{
			{ToolCallID: "c1", Name: "file_read", Content: "{}"},
			{ToolCallID: "c2", Name: "list_directory", Content: "[]"},
		}),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 5)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)

	assert.Equal(t, "assistant", msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	call := msgs[2].ToolCalls[0]
	assert.Equal(t, "c1", call.ID)
	assert.Equal(t, "file_read", call.Function.Name)
	path, ok := call.Function.Arguments.Get("filePath")
	require.True(t, ok)
	assert.Equal(t, "a.go", path)

	for i, id := range []string{"c1", "c2"} {
		m := msgs[3+i]
		assert.Equal(t, "tool", m.Role)
		assert.Equal(t, id, m.ToolCallID)
	}
	assert.Equal(t, "[]", msgs[4].Content)
}

func TestConvertMessagesToOllamaKeepsResultText(t *testing.T) {
	msgs, err := convertMessagesToOllama([]llm.CompletionMessage{{
		Role:        llm.RoleTool,
		Content:     "Continue with the next file.",
		ToolResults: []llm.ToolResult{{ToolCallID: "c1", Content: "ok"}},
	}})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "tool", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "Continue with the next file.", msgs[1].Content)
}

func TestConvertMessagesToOllamaEmpty(t *testing.T) {
	_, err := convertMessagesToOllama(nil)
	assert.Error(t, err)
}

func TestConvertToolsToOllama(t *testing.T) {
	def := tools.ToolDefinition{
		Name:        "spawn_like",
		Description: "starts things",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"files": {Type: "array", Items: &tools.Property{Type: "string"}},
				"mode":  {Type: "string", Enum: []string{"a", "b"}},
			},
			Required: []string{"files"},
		},
	}
	converted := convertToolsToOllama([]tools.ToolDefinition{def})
	require.Len(t, converted, 1)

	tool := converted[0]
	assert.Equal(t, "function", tool.Type)
	assert.Equal(t, "spawn_like", tool.Function.Name)
	assert.Equal(t, "object", tool.Function.Parameters.Type)
	assert.Equal(t, []string{"files"}, tool.Function.Parameters.Required)

	files, ok := tool.Function.Parameters.Properties.Get("files")
	require.True(t, ok)
	assert.Equal(t, api.PropertyType{"array"}, files.Type)
	items, ok := files.Items.(api.ToolProperty)
	require.True(t, ok, "array items should be converted")
	assert.Equal(t, api.PropertyType{"string"}, items.Type)

	mode, ok := tool.Function.Parameters.Properties.Get("mode")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, mode.Enum)
}

func TestConvertToolCallsMintsIDs(t *testing.T) {
	calls := convertToolCallsFromOllama([]api.ToolCall{
		{Function: api.ToolCallFunction{Name: "file_read", Arguments: makeToolCallArgs(map[string]any{"filePath": "a.go"})}},
		{ID: "given", Function: api.ToolCallFunction{Name: "list_directory", Arguments: makeToolCallArgs(map[string]any{"depth": 2})}},
		{Function: api.ToolCallFunction{Name: "file_read", Arguments: makeToolCallArgs(map[string]any{"filePath": "b.go"})}},
	})
	require.Len(t, calls, 3)

	assert.True(t, strings.HasPrefix(calls[0].ID, "call_"), "expected minted id, got %q", calls[0].ID)
	assert.NotEqual(t, calls[0].ID, calls[2].ID, "minted ids must be unique within a turn")
	assert.Equal(t, "given", calls[1].ID)

	assert.Equal(t, map[string]any{"filePath": "a.go"}, calls[0].Parameters)
	assert.Equal(t, map[string]any{"depth": float64(2)}, calls[1].Parameters)
}

func TestGetStopReason(t *testing.T) {
	tests := map[string]struct {
		resp api.ChatResponse
		want string
	}{
		"not done":     {api.ChatResponse{Done: false}, "incomplete"},
		"stop":         {api.ChatResponse{Done: true, DoneReason: "stop"}, "end_turn"},
		"length":       {api.ChatResponse{Done: true, DoneReason: "length"}, "max_tokens"},
		"empty reason": {api.ChatResponse{Done: true}, "end_turn"},
		"other":        {api.ChatResponse{Done: true, DoneReason: "load"}, "load"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, getStopReason(&tt.resp))
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want llmerrors.ErrorType
	}{
		"unreachable": {errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), llmerrors.ErrorTypeTransient},
		"no model":    {errors.New(`model "phi9" not found, try pulling it first`), llmerrors.ErrorTypeBadPrompt},
		"timeout":     {errors.New("i/o timeout"), llmerrors.ErrorTypeTransient},
		"other":       {errors.New("boom"), llmerrors.ErrorTypeUnknown},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := classifyError(tt.err)
			assert.Equal(t, tt.want, llmerrors.TypeOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.NoError(t, classifyError(nil))
}

package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.AnthropicConfig{
		APIKey:    apiKey,
		BaseURL:   server.URL,
		Version:   "2023-06-01",
		MaxTokens: 1000,
	}, 5*time.Second, nil)
}

func textRequest() generation.TextRequest {
	return generation.TextRequest{
		Model:        "claude-3-5-sonnet-latest",
		Prompt:       "Summarize the causes of the French Revolution",
		SystemPrompt: "You are a helpful AI assistant.",
		Parameters:   domain.Parameters{}.WithDefaults(),
	}
}

func TestGenerateText(t *testing.T) {
	t.Parallel()

	var captured messagesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, messagesPath, r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"content": [{"type": "text", "text": "Debt, "}, {"type": "text", "text": "bread and ideas."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 21, "output_tokens": 7}
		}`))
	}, "sk-ant-test")

	result, err := client.GenerateText(context.Background(), textRequest())
	require.NoError(t, err)

	assert.Equal(t, "Debt, bread and ideas.", result.Text)
	assert.Equal(t, &domain.TokenUsage{PromptTokens: 21, CompletionTokens: 7, TotalTokens: 28}, result.Usage)
	assert.Contains(t, string(result.Raw), "msg_01")

	assert.Equal(t, "claude-3-5-sonnet-latest", captured.Model)
	assert.Equal(t, 1000, captured.MaxTokens)
	assert.Equal(t, "You are a helpful AI assistant.", captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.InDelta(t, 0.7, captured.Temperature, 1e-9)
	assert.Nil(t, captured.TopP)
}

func TestGenerateTextErrorStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		kind   generation.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, generation.KindConfig},
		{"rate limited", http.StatusTooManyRequests, generation.KindTransient},
		{"overloaded", 529, generation.KindTransient},
		{"bad request", http.StatusBadRequest, generation.KindRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"x","message":"upstream said no"}}`))
			}, "sk-ant-test")

			result, err := client.GenerateText(context.Background(), textRequest())
			assert.Nil(t, result)
			require.Error(t, err)
			assert.Equal(t, tt.kind, generation.KindOf(err))
			assert.Contains(t, err.Error(), "upstream said no")
		})
	}
}

func TestGenerateTextWithoutAPIKey(t *testing.T) {
	t.Parallel()

	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, "")

	_, err := client.GenerateText(context.Background(), textRequest())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	assert.False(t, called)
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	_, err := parseMessage([]byte(`not json`))
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)

	_, err = parseMessage([]byte(`{"content": [], "stop_reason": "end_turn"}`))
	assert.ErrorIs(t, err, generation.ErrEmptyResult)

	_, err = parseMessage([]byte(`{"content": [], "stop_reason": "refusal"}`))
	assert.ErrorIs(t, err, generation.ErrContentBlocked)

	result, err := parseMessage([]byte(`{"content": [{"type": "text", "text": "ok"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Nil(t, result.Usage)
}

func TestClampTemperature(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, clampTemperature(1.6))
	assert.Equal(t, 0.4, clampTemperature(0.4))
	assert.Equal(t, 0.0, clampTemperature(-1))
}

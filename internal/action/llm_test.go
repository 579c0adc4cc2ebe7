package action_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/taskmaster/internal/action"
	"github.com/kode4food/taskmaster/pkg/api"
)

func newOpenAI(t *testing.T, reply string) (*openai.Client, *openai.ChatCompletionRequest) {
	t.Helper()

	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
				ID:     "chat-1",
				Object: "chat.completion",
				Model:  got.Model,
				Choices: []openai.ChatCompletionChoice{{
					Message: openai.ChatCompletionMessage{
						Role:    openai.ChatMessageRoleAssistant,
						Content: reply,
					},
					FinishReason: openai.FinishReasonStop,
				}},
			})
		},
	))
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return openai.NewClientWithConfig(cfg), &got
}

func TestLLMCompletion(t *testing.T) {
	cl, got := newOpenAI(t, "  bonjour  ")

	l, err := action.NewLLM(cl, api.Config{
		"model":  "test-model",
		"prompt": "Translate {{text}} to French",
	})
	require.NoError(t, err)

	res, err := l.Execute(context.Background(), newContext(map[string]any{
		"text": "hello",
	}))
	assert.NoError(t, err)
	assert.Equal(t, "bonjour", res)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "Translate hello to French", got.Messages[1].Content)
}

func TestLLMInputMessage(t *testing.T) {
	cl, got := newOpenAI(t, "summary")

	l, err := action.NewLLM(cl, api.Config{"input": "doc"})
	require.NoError(t, err)

	_, err = l.Execute(context.Background(), newContext(map[string]any{
		"doc": map[string]any{"title": "t"},
	}))
	assert.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, `{"title":"t"}`, got.Messages[1].Content)
}

func TestLLMOptions(t *testing.T) {
	_, err := action.NewLLM(nil, api.Config{"prompt": "x"})
	assert.ErrorIs(t, err, action.ErrNoLLMClient)

	cl, _ := newOpenAI(t, "")
	_, err = action.NewLLM(cl, api.Config{})
	assert.ErrorIs(t, err, action.ErrMissingOption)
}
